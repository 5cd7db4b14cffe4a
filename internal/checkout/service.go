package checkout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	"github.com/avdeevlav/sborka-backend/internal/inventory"
	"github.com/avdeevlav/sborka-backend/internal/orders"
	"github.com/avdeevlav/sborka-backend/internal/pricing"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderNotifier interface {
	EnqueueOrderCreated(ctx context.Context, order *models.Order) error
}

// DeliveryInput carries the delivery choice made at checkout.
type DeliveryInput struct {
	Type        enums.DeliveryType
	Address     *string
	CostKopecks int64
}

// GuestInfo names the guest placing an order; nil for registered users.
type GuestInfo struct {
	Name  string
	Phone string
}

// Result pairs the orders that were created with per-collection failures.
type Result struct {
	Orders []*models.Order
	Err    error
}

// Service turns carts into orders. One collection, one transaction: within
// a collection the order is all-or-nothing, across collections each order
// commits or fails on its own.
type Service interface {
	CreateOrder(ctx context.Context, owner cart.Owner, collectionID int64, delivery DeliveryInput, guest *GuestInfo) (*models.Order, error)
	CreateOrders(ctx context.Context, owner cart.Owner, delivery DeliveryInput, guest *GuestInfo) (*Result, error)
}

type service struct {
	cartRepo   *cart.Repository
	catalog    *catalog.Repository
	ordersRepo *orders.Repository
	ledger     *inventory.Ledger
	tx         txRunner
	notifier   orderNotifier
	logg       *logger.Logger
	metrics    *metrics.CheckoutMetrics
}

// NewService builds the checkout service. The notifier and metrics are
// optional; nil disables them.
func NewService(
	cartRepo *cart.Repository,
	catalogRepo *catalog.Repository,
	ordersRepo *orders.Repository,
	ledger *inventory.Ledger,
	tx txRunner,
	notifier orderNotifier,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cartRepo:   cartRepo,
		catalog:    catalogRepo,
		ordersRepo: ordersRepo,
		ledger:     ledger,
		tx:         tx,
		notifier:   notifier,
		logg:       logg,
		metrics:    checkoutMetrics,
	}, nil
}

// CreateOrder submits the owner's cart for one collection as a single
// atomic order. Any line failing fresh validation aborts everything.
func (s *service) CreateOrder(ctx context.Context, owner cart.Owner, collectionID int64, delivery DeliveryInput, guest *GuestInfo) (*models.Order, error) {
	started := time.Now()
	order, err := s.createOrderTx(ctx, owner, collectionID, delivery, guest)
	if err != nil {
		s.metrics.IncOrder("failed")
		s.metrics.ObserveDuration("failed", time.Since(started))
		return nil, err
	}
	s.metrics.IncOrder("created")
	s.metrics.ObserveDuration("created", time.Since(started))

	s.notifyCreated(ctx, order)
	return order, nil
}

// CreateOrders submits the owner's whole cart, one independent order per
// collection. Collections fail independently; errors are collected and
// returned next to whatever succeeded.
func (s *service) CreateOrders(ctx context.Context, owner cart.Owner, delivery DeliveryInput, guest *GuestInfo) (*Result, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be a user or a guest session")
	}

	collectionIDs, err := s.cartRepo.CollectionIDs(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart collections")
	}
	if len(collectionIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeCartEmpty, "cart is empty")
	}

	result := &Result{}
	for _, collectionID := range collectionIDs {
		order, err := s.CreateOrder(ctx, owner, collectionID, delivery, guest)
		if err != nil {
			result.Err = multierr.Append(result.Err, fmt.Errorf("collection %d: %w", collectionID, err))
			continue
		}
		result.Orders = append(result.Orders, order)
	}
	return result, nil
}

func (s *service) createOrderTx(ctx context.Context, owner cart.Owner, collectionID int64, delivery DeliveryInput, guest *GuestInfo) (*models.Order, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be a user or a guest session")
	}
	if owner.IsGuest() && guest == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest checkout requires a name and phone")
	}
	if !delivery.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown delivery type %q", delivery.Type))
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		// cart first: an empty cart reports CART_EMPTY even when the
		// collection has already closed
		lines, err := cartRepo.ListForOwnerCollection(ctx, owner, collectionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeCartEmpty, "cart is empty for this collection")
		}

		collection, err := catalogRepo.GetCollection(ctx, collectionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collection")
		}
		if collection == nil {
			return pkgerrors.New(pkgerrors.CodeCollectionNotFound, "collection not found")
		}
		if collection.Status != enums.CollectionStatusActive {
			return pkgerrors.New(pkgerrors.CodeCollectionNotActive, "collection is not open for orders")
		}

		resolver, err := pricing.NewResolver(catalogRepo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build resolver")
		}

		// every line re-validated against pricing as of this instant
		var total int64
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			view, err := resolver.Resolve(ctx, line.ProductID, collectionID)
			if err != nil {
				return err
			}
			unitPrice, subtotal, err := cart.ValidateAndPrice(view, line.Quantity)
			if err != nil {
				return err
			}
			total += subtotal
			items = append(items, models.OrderItem{
				ProductID:        line.ProductID,
				Title:            view.Title,
				UnitLabel:        view.UnitLabel,
				Quantity:         line.Quantity,
				Step:             view.Step,
				UnitPriceKopecks: unitPrice,
				SubtotalKopecks:  subtotal,
				ImagePath:        view.ImagePath,
			})
		}

		order = &models.Order{
			CollectionID:        collectionID,
			Status:              enums.OrderStatusSubmitted,
			TotalKopecks:        total + delivery.CostKopecks,
			DeliveryType:        delivery.Type,
			DeliveryAddress:     delivery.Address,
			DeliveryCostKopecks: delivery.CostKopecks,
			UserID:              owner.UserID,
		}
		if owner.IsGuest() {
			order.GuestSessionID = owner.SessionID
			order.GuestName = &guest.Name
			order.GuestPhone = &guest.Phone
			order.IsGuestOrder = true
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order")
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := ordersRepo.CreateItem(ctx, &items[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order item")
			}
			if _, err := ledger.Decrease(ctx, items[i].ProductID, items[i].Quantity); err != nil {
				return err
			}
		}
		order.Items = items

		return cartRepo.DeleteForOwnerCollection(ctx, owner, collectionID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// notifyCreated is post-commit and best-effort: a dead queue must never
// undo a committed order.
func (s *service) notifyCreated(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueueOrderCreated(ctx, order); err != nil {
		fields := map[string]any{"order_number": order.OrderNumber}
		s.logg.Error(s.logg.WithFields(ctx, fields), "enqueue order notification failed", err)
	}
}
