package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/internal/catalog"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Collection{}, &models.CollectionProduct{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestResolver(t *testing.T, db *gorm.DB) Resolver {
	t.Helper()
	r, err := NewResolver(catalog.NewRepository(db))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func TestResolveBaseFieldsWithoutOverride(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	product := models.Product{
		Title:        "Кофе зерновой",
		UnitLabel:    "кг",
		PriceKopecks: 120000,
		Step:         decimal.RequireFromString("0.5"),
		IsActive:     true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	view, err := newTestResolver(t, db).Resolve(ctx, product.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !view.Available {
		t.Fatal("expected product to be available")
	}
	if view.PriceKopecks != 120000 {
		t.Fatalf("unexpected price %d", view.PriceKopecks)
	}
	if !view.Step.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("unexpected step %s", view.Step)
	}
}

func TestResolveOverrideShadowsBase(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	product := models.Product{
		Title:        "Мёд липовый",
		UnitLabel:    "кг",
		PriceKopecks: 90000,
		Step:         decimal.NewFromInt(1),
		IsActive:     true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	overridePrice := int64(85000)
	overrideStep := decimal.RequireFromString("0.25")
	override := models.CollectionProduct{
		CollectionID: 7,
		ProductID:    product.ID,
		PriceKopecks: &overridePrice,
		Step:         &overrideStep,
		IsActive:     true,
	}
	if err := db.Create(&override).Error; err != nil {
		t.Fatalf("seed override: %v", err)
	}

	view, err := newTestResolver(t, db).Resolve(ctx, product.ID, 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.PriceKopecks != 85000 {
		t.Fatalf("override price not applied, got %d", view.PriceKopecks)
	}
	if !view.Step.Equal(overrideStep) {
		t.Fatalf("override step not applied, got %s", view.Step)
	}
	if view.Title != "Мёд липовый" {
		t.Fatalf("base title must survive override, got %q", view.Title)
	}

	// unrelated collection sees base fields only
	other, err := newTestResolver(t, db).Resolve(ctx, product.ID, 8)
	if err != nil {
		t.Fatalf("resolve other collection: %v", err)
	}
	if other.PriceKopecks != 90000 || !other.Step.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("override leaked into another collection: %+v", other)
	}
}

func TestResolveMissingProductReturnsSentinel(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	view, err := newTestResolver(t, db).Resolve(context.Background(), 4242, 1)
	if err != nil {
		t.Fatalf("resolve must not error for a missing product: %v", err)
	}
	if view.Available {
		t.Fatal("missing product must be unavailable")
	}
	if view.PriceKopecks != 0 {
		t.Fatalf("sentinel price must be zero, got %d", view.PriceKopecks)
	}
	if !view.Step.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("sentinel step must be 1, got %s", view.Step)
	}
	if view.StockHint == nil || *view.StockHint != enums.StockHintOut {
		t.Fatalf("sentinel hint must be out of stock, got %v", view.StockHint)
	}
}

func TestDeactivationSurvivesInsert(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	product := models.Product{Title: "Сыр", UnitLabel: "кг", PriceKopecks: 100, Step: decimal.NewFromInt(1), IsActive: false}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	override := models.CollectionProduct{CollectionID: 3, ProductID: product.ID, IsActive: false}
	if err := db.Create(&override).Error; err != nil {
		t.Fatalf("seed override: %v", err)
	}

	var gotProduct models.Product
	if err := db.First(&gotProduct, product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if gotProduct.IsActive {
		t.Fatal("product created inactive must stay inactive")
	}
	var gotOverride models.CollectionProduct
	if err := db.First(&gotOverride, override.ID).Error; err != nil {
		t.Fatalf("reload override: %v", err)
	}
	if gotOverride.IsActive {
		t.Fatal("override created inactive must stay inactive")
	}
}

func TestResolveInactiveProductReturnsSentinel(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	product := models.Product{
		Title:        "Чай чёрный",
		UnitLabel:    "шт",
		PriceKopecks: 45000,
		Step:         decimal.RequireFromString("0.5"),
		IsActive:     false,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	view, err := newTestResolver(t, db).Resolve(context.Background(), product.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Available {
		t.Fatal("inactive product must be unavailable")
	}
	if view.PriceKopecks != 0 {
		t.Fatalf("inactive product must not expose its price, got %d", view.PriceKopecks)
	}
	if !view.Step.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("inactive product must resolve with step 1, got %s", view.Step)
	}
	if view.StockHint == nil || *view.StockHint != enums.StockHintOut {
		t.Fatalf("inactive product must carry the out-of-stock hint, got %v", view.StockHint)
	}
}

func TestResolveAvailabilityRules(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	outHint := enums.StockHintOut
	inHint := enums.StockHintIn

	inactive := models.Product{Title: "a", UnitLabel: "шт", PriceKopecks: 100, Step: decimal.NewFromInt(1), IsActive: false}
	outOfStock := models.Product{Title: "b", UnitLabel: "шт", PriceKopecks: 100, Step: decimal.NewFromInt(1), IsActive: true, StockHint: &outHint}
	disabled := models.Product{Title: "c", UnitLabel: "шт", PriceKopecks: 100, Step: decimal.NewFromInt(1), IsActive: true}
	hintedOut := models.Product{Title: "d", UnitLabel: "шт", PriceKopecks: 100, Step: decimal.NewFromInt(1), IsActive: true, StockHint: &inHint}
	for _, p := range []*models.Product{&inactive, &outOfStock, &disabled, &hintedOut} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	if err := db.Create(&models.CollectionProduct{CollectionID: 1, ProductID: disabled.ID, IsActive: false}).Error; err != nil {
		t.Fatalf("seed disabled override: %v", err)
	}
	if err := db.Create(&models.CollectionProduct{CollectionID: 1, ProductID: hintedOut.ID, StockHint: &outHint, IsActive: true}).Error; err != nil {
		t.Fatalf("seed hint override: %v", err)
	}

	r := newTestResolver(t, db)
	for name, productID := range map[string]int64{
		"inactive product":  inactive.ID,
		"base out hint":     outOfStock.ID,
		"override disabled": disabled.ID,
		"override out hint": hintedOut.ID,
	} {
		view, err := r.Resolve(ctx, productID, 1)
		if err != nil {
			t.Fatalf("%s: resolve: %v", name, err)
		}
		if view.Available {
			t.Fatalf("%s: expected unavailable", name)
		}
	}
}
