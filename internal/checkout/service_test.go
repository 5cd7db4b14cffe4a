package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	"github.com/avdeevlav/sborka-backend/internal/inventory"
	"github.com/avdeevlav/sborka-backend/internal/orders"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubNotifier struct {
	orders []*models.Order
	err    error
}

func (s *stubNotifier) EnqueueOrderCreated(_ context.Context, order *models.Order) error {
	if s.err != nil {
		return s.err
	}
	s.orders = append(s.orders, order)
	return nil
}

type testStack struct {
	db       *gorm.DB
	service  Service
	notifier *stubNotifier
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Collection{},
		&models.CollectionProduct{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ledger, err := inventory.NewLedger(db, logg)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	notifier := &stubNotifier{}
	svc, err := NewService(
		cart.NewRepository(db),
		catalog.NewRepository(db),
		orders.NewRepository(db),
		ledger,
		gormTxRunner{db: db},
		notifier,
		logg,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testStack{db: db, service: svc, notifier: notifier}
}

func (ts *testStack) seedCollection(t *testing.T, status enums.CollectionStatus) int64 {
	t.Helper()
	collection := models.Collection{Title: "Сбор", Status: status}
	if err := ts.db.Create(&collection).Error; err != nil {
		t.Fatalf("seed collection: %v", err)
	}
	return collection.ID
}

func (ts *testStack) seedProduct(t *testing.T, title string, price int64, step, stock string) int64 {
	t.Helper()
	product := models.Product{
		Title:         title,
		UnitLabel:     "кг",
		PriceKopecks:  price,
		Step:          decimal.RequireFromString(step),
		StockQuantity: decimal.RequireFromString(stock),
		IsActive:      true,
	}
	if err := ts.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func (ts *testStack) seedCartLine(t *testing.T, owner cart.Owner, collectionID, productID int64, quantity string) {
	t.Helper()
	line := models.CartItem{
		UserID:       owner.UserID,
		SessionID:    owner.SessionID,
		CollectionID: collectionID,
		ProductID:    productID,
		Quantity:     decimal.RequireFromString(quantity),
	}
	if err := ts.db.Create(&line).Error; err != nil {
		t.Fatalf("seed cart line: %v", err)
	}
}

func (ts *testStack) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	if err := ts.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func pickupDelivery() DeliveryInput {
	return DeliveryInput{Type: enums.DeliveryTypePickup}
}

func TestCreateOrderHappyPath(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	collectionID := ts.seedCollection(t, enums.CollectionStatusActive)
	productA := ts.seedProduct(t, "Сыр", 15000, "0.5", "10")
	productB := ts.seedProduct(t, "Хлеб", 6000, "1", "10")
	owner := cart.UserOwner(1)
	ts.seedCartLine(t, owner, collectionID, productA, "1.5")
	ts.seedCartLine(t, owner, collectionID, productB, "2")

	order, err := ts.service.CreateOrder(ctx, owner, collectionID, pickupDelivery(), nil)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.OrderNumber != orders.FormatOrderNumber(order.ID) {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if order.Status != enums.OrderStatusSubmitted {
		t.Fatalf("expected submitted, got %s", order.Status)
	}
	// 15000×3 + 6000×2 = 57000
	if order.TotalKopecks != 57000 {
		t.Fatalf("expected total 57000, got %d", order.TotalKopecks)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(order.Items))
	}
	if order.Items[0].Title != "Сыр" || !order.Items[0].Step.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("snapshot fields wrong: %+v", order.Items[0])
	}

	// cart cleared, stock decremented
	if got := ts.countRows(t, &models.CartItem{}); got != 0 {
		t.Fatalf("cart must be empty after checkout, %d lines left", got)
	}
	var product models.Product
	if err := ts.db.First(&product, productA).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !product.StockQuantity.Equal(decimal.RequireFromString("8.5")) {
		t.Fatalf("expected stock 8.5, got %s", product.StockQuantity)
	}

	// notification enqueued post-commit
	if len(ts.notifier.orders) != 1 || ts.notifier.orders[0].ID != order.ID {
		t.Fatalf("expected one enqueued notification, got %+v", ts.notifier.orders)
	}
}

func TestCreateOrderIsAtomic(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	collectionID := ts.seedCollection(t, enums.CollectionStatusActive)
	productA := ts.seedProduct(t, "Сыр", 15000, "0.5", "10")
	productB := ts.seedProduct(t, "Хлеб", 6000, "1", "10")
	owner := cart.UserOwner(1)
	ts.seedCartLine(t, owner, collectionID, productA, "1.5")
	ts.seedCartLine(t, owner, collectionID, productB, "2")

	// second product goes off sale between carting and checkout
	if err := ts.db.Model(&models.Product{}).Where("id = ?", productB).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := ts.service.CreateOrder(ctx, owner, collectionID, pickupDelivery(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeProductNotAvailable {
		t.Fatalf("expected PRODUCT_NOT_AVAILABLE, got %v", err)
	}

	// nothing persisted, nothing decremented, cart intact
	if got := ts.countRows(t, &models.Order{}); got != 0 {
		t.Fatalf("no order may exist, got %d", got)
	}
	if got := ts.countRows(t, &models.OrderItem{}); got != 0 {
		t.Fatalf("no order items may exist, got %d", got)
	}
	if got := ts.countRows(t, &models.CartItem{}); got != 2 {
		t.Fatalf("cart must survive a failed checkout, got %d lines", got)
	}
	var product models.Product
	if err := ts.db.First(&product, productA).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !product.StockQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stock must be untouched, got %s", product.StockQuantity)
	}
	if len(ts.notifier.orders) != 0 {
		t.Fatalf("no notification for a failed order")
	}
}

func TestCreateOrderGuards(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	active := ts.seedCollection(t, enums.CollectionStatusActive)
	closed := ts.seedCollection(t, enums.CollectionStatusClosed)
	productA := ts.seedProduct(t, "Сыр", 15000, "0.5", "10")
	owner := cart.UserOwner(1)

	// empty cart
	_, err := ts.service.CreateOrder(ctx, owner, active, pickupDelivery(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCartEmpty {
		t.Fatalf("expected CART_EMPTY, got %v", err)
	}

	// empty cart wins over a closed collection
	_, err = ts.service.CreateOrder(ctx, owner, closed, pickupDelivery(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCartEmpty {
		t.Fatalf("expected CART_EMPTY for an empty cart in a closed collection, got %v", err)
	}

	// closed collection
	ts.seedCartLine(t, owner, closed, productA, "0.5")
	_, err = ts.service.CreateOrder(ctx, owner, closed, pickupDelivery(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCollectionNotActive {
		t.Fatalf("expected COLLECTION_NOT_ACTIVE, got %v", err)
	}

	// guest without contact info
	guestOwner := cart.GuestOwner("sess-1")
	ts.seedCartLine(t, guestOwner, active, productA, "0.5")
	_, err = ts.service.CreateOrder(ctx, guestOwner, active, pickupDelivery(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for guest without info, got %v", err)
	}
}

func TestCreateOrderGuestFields(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	collectionID := ts.seedCollection(t, enums.CollectionStatusActive)
	productA := ts.seedProduct(t, "Сыр", 15000, "0.5", "10")
	owner := cart.GuestOwner("sess-9")
	ts.seedCartLine(t, owner, collectionID, productA, "0.5")

	order, err := ts.service.CreateOrder(ctx, owner, collectionID, pickupDelivery(), &GuestInfo{Name: "Анна", Phone: "+79990000000"})
	if err != nil {
		t.Fatalf("guest checkout: %v", err)
	}
	if !order.IsGuestOrder || order.GuestSessionID == nil || *order.GuestSessionID != "sess-9" {
		t.Fatalf("guest marker fields wrong: %+v", order)
	}
	if order.GuestName == nil || *order.GuestName != "Анна" {
		t.Fatalf("guest name not stored")
	}
	if order.UserID != nil {
		t.Fatalf("guest order must not carry a user id")
	}
}

func TestCreateOrdersSplitsPerCollection(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	first := ts.seedCollection(t, enums.CollectionStatusActive)
	second := ts.seedCollection(t, enums.CollectionStatusActive)
	third := ts.seedCollection(t, enums.CollectionStatusClosed)
	productA := ts.seedProduct(t, "Сыр", 15000, "0.5", "10")
	productB := ts.seedProduct(t, "Хлеб", 6000, "1", "10")
	owner := cart.UserOwner(1)
	ts.seedCartLine(t, owner, first, productA, "1.5")
	ts.seedCartLine(t, owner, second, productB, "2")
	ts.seedCartLine(t, owner, third, productA, "0.5")

	result, err := ts.service.CreateOrders(ctx, owner, pickupDelivery(), nil)
	if err != nil {
		t.Fatalf("create orders: %v", err)
	}

	if len(result.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(result.Orders))
	}
	failures := multierr.Errors(result.Err)
	if len(failures) != 1 {
		t.Fatalf("expected 1 per-collection failure, got %v", result.Err)
	}
	if typed := pkgerrors.As(failures[0]); typed == nil || typed.Code() != pkgerrors.CodeCollectionNotActive {
		t.Fatalf("expected COLLECTION_NOT_ACTIVE failure, got %v", failures[0])
	}

	// the closed collection's line survives for later
	if got := ts.countRows(t, &models.CartItem{}); got != 1 {
		t.Fatalf("expected 1 surviving cart line, got %d", got)
	}
}

func TestCreateOrdersEmptyCart(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)

	_, err := ts.service.CreateOrders(context.Background(), cart.UserOwner(1), pickupDelivery(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCartEmpty {
		t.Fatalf("expected CART_EMPTY, got %v", err)
	}
}

func TestCreateOrderNotifierFailureDoesNotFailOrder(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ts.notifier.err = pkgerrors.New(pkgerrors.CodeDependency, "queue down")
	ctx := context.Background()
	collectionID := ts.seedCollection(t, enums.CollectionStatusActive)
	productA := ts.seedProduct(t, "Сыр", 15000, "0.5", "10")
	owner := cart.UserOwner(1)
	ts.seedCartLine(t, owner, collectionID, productA, "0.5")

	order, err := ts.service.CreateOrder(ctx, owner, collectionID, pickupDelivery(), nil)
	if err != nil {
		t.Fatalf("order must survive a dead notifier: %v", err)
	}
	if order.ID == 0 {
		t.Fatal("order not persisted")
	}
}
