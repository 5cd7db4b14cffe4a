package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestLedger(t *testing.T, db *gorm.DB) *Ledger {
	t.Helper()
	ledger, err := NewLedger(db, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger
}

func seedProduct(t *testing.T, db *gorm.DB, stock string) int64 {
	t.Helper()
	product := models.Product{
		Title:         "Гречка",
		UnitLabel:     "кг",
		PriceKopecks:  8000,
		Step:          decimal.RequireFromString("0.5"),
		StockQuantity: decimal.RequireFromString(stock),
		IsActive:      true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func stockOf(t *testing.T, db *gorm.DB, id int64) decimal.Decimal {
	t.Helper()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.StockQuantity
}

func TestDecreaseSubtractsExactly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)
	id := seedProduct(t, db, "10.5")

	clamped, err := ledger.Decrease(context.Background(), id, decimal.RequireFromString("1.5"))
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if clamped {
		t.Fatal("unexpected clamp")
	}
	if got := stockOf(t, db, id); !got.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("expected stock 9, got %s", got)
	}
}

func TestDecreaseClampsAtZero(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)
	id := seedProduct(t, db, "2")

	clamped, err := ledger.Decrease(context.Background(), id, decimal.RequireFromString("3.5"))
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if !clamped {
		t.Fatal("expected clamp to fire")
	}
	if got := stockOf(t, db, id); !got.Equal(decimal.Zero) {
		t.Fatalf("expected stock 0, got %s", got)
	}
}

func TestIncreaseIsSymmetric(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)
	id := seedProduct(t, db, "4")
	ctx := context.Background()
	qty := decimal.RequireFromString("1.5")

	if _, err := ledger.Decrease(ctx, id, qty); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if err := ledger.Increase(ctx, id, qty); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if got := stockOf(t, db, id); !got.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("expected stock back at 4, got %s", got)
	}
}

func TestLedgerRejectsNonPositiveQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)
	id := seedProduct(t, db, "4")
	ctx := context.Background()

	if _, err := ledger.Decrease(ctx, id, decimal.Zero); err == nil {
		t.Fatal("expected validation error for zero decrease")
	}
	if err := ledger.Increase(ctx, id, decimal.RequireFromString("-1")); err == nil {
		t.Fatal("expected validation error for negative increase")
	}
}

func TestLedgerMissingProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)
	ctx := context.Background()

	_, err := ledger.Decrease(ctx, 999, decimal.NewFromInt(1))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	err = ledger.Increase(ctx, 999, decimal.NewFromInt(1))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecreaseInsideTransactionRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)
	id := seedProduct(t, db, "10")
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.WithTx(tx).Decrease(ctx, id, decimal.NewFromInt(4)); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "boom")
	})
	if err == nil {
		t.Fatal("expected transaction to fail")
	}
	if got := stockOf(t, db, id); !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("rollback must restore stock, got %s", got)
	}
}
