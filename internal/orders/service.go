package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	"github.com/avdeevlav/sborka-backend/internal/inventory"
	"github.com/avdeevlav/sborka-backend/internal/pricing"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/pagination"
	"github.com/avdeevlav/sborka-backend/pkg/qty"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineCancel names how much of one order item to cancel.
type LineCancel struct {
	OrderItemID int64
	Quantity    decimal.Decimal
}

// Service is the mutation engine over submitted orders. Every mutation is
// guarded to status SUBMITTED, runs in one transaction, keeps the inventory
// ledger symmetric and recomputes the order total from its item subtotals.
type Service interface {
	Get(ctx context.Context, owner cart.Owner, orderID int64) (*models.Order, error)
	List(ctx context.Context, owner cart.Owner, p pagination.Params) (*Page, error)
	PartialCancel(ctx context.Context, owner cart.Owner, orderID int64, lines []LineCancel) (*models.Order, error)
	Cancel(ctx context.Context, owner cart.Owner, orderID int64) (*models.Order, error)
	AddItem(ctx context.Context, owner cart.Owner, orderID, productID int64, quantity decimal.Decimal) (*models.Order, error)
	UpdateItemQuantity(ctx context.Context, owner cart.Owner, orderID, itemID int64, quantity decimal.Decimal) (*models.Order, error)
	RemoveItem(ctx context.Context, owner cart.Owner, orderID, itemID int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus) (*models.Order, error)
	RepeatOrder(ctx context.Context, owner cart.Owner, orderID, collectionID int64) (*RepeatResult, error)
}

// RepeatResult reports how a repeat-into-collection went per line.
type RepeatResult struct {
	Added   int
	Skipped int
}

// Page is one cursor page of the owner's orders. An empty NextCursor means
// the last page.
type Page struct {
	Orders     []models.Order
	NextCursor string
}

type service struct {
	repo    *Repository
	catalog *catalog.Repository
	ledger  *inventory.Ledger
	tx      txRunner
	cart    cart.Service
}

// NewService builds the order mutation service.
func NewService(repo *Repository, catalogRepo *catalog.Repository, ledger *inventory.Ledger, tx txRunner, cartSvc cart.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		ledger:  ledger,
		tx:      tx,
		cart:    cartSvc,
	}, nil
}

// Get returns one order owned by the caller.
func (s *service) Get(ctx context.Context, owner cart.Owner, orderID int64) (*models.Order, error) {
	return s.ownedOrder(ctx, s.repo, owner, orderID)
}

// List returns the caller's orders.
func (s *service) List(ctx context.Context, owner cart.Owner, p pagination.Params) (*Page, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order owner must be a user or a guest session")
	}
	cursor, err := pagination.ParseCursor(p.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(p.Limit)
	rows, err := s.repo.ListForOwner(ctx, owner, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	page := &Page{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			Key: pagination.TimeKey(last.CreatedAt),
			ID:  last.ID,
		})
	}
	return page, nil
}

// PartialCancel decrements the named lines, drops lines that reach zero and
// returns the cancelled quantities to stock. Cancelling everything cancels
// the order itself.
func (s *service) PartialCancel(ctx context.Context, owner cart.Owner, orderID int64, lines []LineCancel) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to cancel")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := s.ownedOrder(ctx, repo, owner, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(order, pkgerrors.CodeOrderNotCancellable); err != nil {
			return err
		}

		itemByID := make(map[int64]*models.OrderItem, len(order.Items))
		for i := range order.Items {
			itemByID[order.Items[i].ID] = &order.Items[i]
		}

		for _, line := range lines {
			item, ok := itemByID[line.OrderItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			if line.Quantity.Sign() <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "cancel quantity must be positive")
			}

			cancelled := decimal.Min(line.Quantity, item.Quantity)
			remaining := item.Quantity.Sub(cancelled)

			if err := ledger.Increase(ctx, item.ProductID, cancelled); err != nil {
				return err
			}

			if remaining.Sign() <= 0 {
				if err := repo.DeleteItem(ctx, item.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop cancelled item")
				}
				item.Quantity = decimal.Zero
				item.SubtotalKopecks = 0
				continue
			}

			steps, err := qty.StepCount(remaining, item.Step)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeQuantityNotMultiple, err, "remaining quantity must stay step-aligned").
					WithDetails(map[string]any{"step": item.Step.String()})
			}
			subtotal, err := qty.Subtotal(item.UnitPriceKopecks, steps)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePriceStepMismatch, err, "recompute item subtotal")
			}

			item.Quantity = remaining
			item.SubtotalKopecks = subtotal
			if err := repo.UpdateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cancelled item")
			}
		}

		return s.finishMutation(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

// Cancel returns every line's quantity to stock and cancels the order.
func (s *service) Cancel(ctx context.Context, owner cart.Owner, orderID int64) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := s.ownedOrder(ctx, repo, owner, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(order, pkgerrors.CodeOrderNotCancellable); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := ledger.Increase(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

// AddItem appends a product to a submitted order, priced against the
// order's collection right now, and decrements stock.
func (s *service) AddItem(ctx context.Context, owner cart.Owner, orderID, productID int64, quantity decimal.Decimal) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := s.ownedOrder(ctx, repo, owner, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(order, pkgerrors.CodeOrderNotEditable); err != nil {
			return err
		}

		resolver, err := pricing.NewResolver(s.catalog.WithTx(tx))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build resolver")
		}
		view, err := resolver.Resolve(ctx, productID, order.CollectionID)
		if err != nil {
			return err
		}
		unitPrice, subtotal, err := cart.ValidateAndPrice(view, quantity)
		if err != nil {
			return err
		}

		item := &models.OrderItem{
			OrderID:          order.ID,
			ProductID:        productID,
			Title:            view.Title,
			UnitLabel:        view.UnitLabel,
			Quantity:         quantity,
			Step:             view.Step,
			UnitPriceKopecks: unitPrice,
			SubtotalKopecks:  subtotal,
			ImagePath:        view.ImagePath,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order item")
		}
		if _, err := ledger.Decrease(ctx, productID, quantity); err != nil {
			return err
		}

		order.Items = append(order.Items, *item)
		return s.finishMutation(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

// UpdateItemQuantity changes a line's quantity, recomputing the subtotal
// from the snapshotted unit price and step, and adjusts stock by the delta.
func (s *service) UpdateItemQuantity(ctx context.Context, owner cart.Owner, orderID, itemID int64, quantity decimal.Decimal) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := s.ownedOrder(ctx, repo, owner, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(order, pkgerrors.CodeOrderNotEditable); err != nil {
			return err
		}

		item := findItem(order, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}

		steps, err := qty.StepCount(quantity, item.Step)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeQuantityNotMultiple, err, "quantity must be a positive multiple of the step").
				WithDetails(map[string]any{"step": item.Step.String(), "quantity": quantity.String()})
		}
		subtotal, err := qty.Subtotal(item.UnitPriceKopecks, steps)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePriceStepMismatch, err, "recompute item subtotal")
		}

		delta := quantity.Sub(item.Quantity)
		switch {
		case delta.Sign() > 0:
			if _, err := ledger.Decrease(ctx, item.ProductID, delta); err != nil {
				return err
			}
		case delta.Sign() < 0:
			if err := ledger.Increase(ctx, item.ProductID, delta.Neg()); err != nil {
				return err
			}
		}

		item.Quantity = quantity
		item.SubtotalKopecks = subtotal
		if err := repo.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order item")
		}
		return s.finishMutation(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

// RemoveItem drops one line and returns its quantity to stock. The last
// remaining line cannot be removed; cancel the order instead.
func (s *service) RemoveItem(ctx context.Context, owner cart.Owner, orderID, itemID int64) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := s.ownedOrder(ctx, repo, owner, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(order, pkgerrors.CodeOrderNotEditable); err != nil {
			return err
		}

		item := findItem(order, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		if len(order.Items) == 1 {
			return pkgerrors.New(pkgerrors.CodeCannotDeleteLastItem, "an order must keep at least one item; cancel it instead")
		}

		if err := ledger.Increase(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order item")
		}

		item.Quantity = decimal.Zero
		item.SubtotalKopecks = 0
		return s.finishMutation(ctx, repo, order)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

// UpdateStatus is the admin transition. Only SUBMITTED→CANCELLED touches
// inventory; the rest is a plain status write along the forward path.
func (s *service) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", status))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.GetByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == status {
			return nil
		}

		if status == enums.OrderStatusCancelled {
			if order.Status != enums.OrderStatusSubmitted {
				return pkgerrors.New(pkgerrors.CodeOrderNotCancellable, "only submitted orders can be cancelled")
			}
			ledger := s.ledger.WithTx(tx)
			for _, item := range order.Items {
				if err := ledger.Increase(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		return repo.UpdateStatus(ctx, order.ID, status)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

// RepeatOrder copies the order's lines into the owner's cart for a target
// active collection. Each line is re-validated against current pricing;
// lines that no longer fit are skipped, never fatal.
func (s *service) RepeatOrder(ctx context.Context, owner cart.Owner, orderID, collectionID int64) (*RepeatResult, error) {
	order, err := s.ownedOrder(ctx, s.repo, owner, orderID)
	if err != nil {
		return nil, err
	}

	result := &RepeatResult{}
	for _, item := range order.Items {
		if _, err := s.cart.AddItem(ctx, owner, collectionID, item.ProductID, item.Quantity); err != nil {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() == pkgerrors.CodeInternal ||
				typed.Code() == pkgerrors.CodeCollectionNotFound ||
				typed.Code() == pkgerrors.CodeCollectionNotActive {
				return nil, err
			}
			result.Skipped++
			continue
		}
		result.Added++
	}
	return result, nil
}

func (s *service) ownedOrder(ctx context.Context, repo *Repository, owner cart.Owner, orderID int64) (*models.Order, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order owner must be a user or a guest session")
	}
	order, err := repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil || !orderOwnedBy(order, owner) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// finishMutation recomputes the total from live item subtotals and cancels
// the order outright when no items remain.
func (s *service) finishMutation(ctx context.Context, repo *Repository, order *models.Order) error {
	var total int64
	remaining := 0
	for _, item := range order.Items {
		if item.SubtotalKopecks == 0 && item.Quantity.Sign() == 0 {
			continue
		}
		total += item.SubtotalKopecks
		remaining++
	}

	if remaining == 0 {
		return repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	}
	return repo.UpdateTotal(ctx, order.ID, total+order.DeliveryCostKopecks)
}

func (s *service) reload(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func requireEditable(order *models.Order, code pkgerrors.Code) error {
	if order.Status.IsEditable() {
		return nil
	}
	return pkgerrors.New(code, fmt.Sprintf("order %s is %s", order.OrderNumber, order.Status))
}

func findItem(order *models.Order, itemID int64) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}
