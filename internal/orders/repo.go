package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	"github.com/avdeevlav/sborka-backend/pkg/pagination"
)

// Repository manages orders and their item snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the order and derives its human-readable number from the
// assigned id, all against the repository's current DB handle. Callers run
// this inside a transaction so the number can never be observed empty.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	q := r.db.WithContext(ctx)
	if err := q.Create(order).Error; err != nil {
		return err
	}
	order.OrderNumber = FormatOrderNumber(order.ID)
	return q.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("order_number", order.OrderNumber).Error
}

// FormatOrderNumber renders the canonical order number for an id.
func FormatOrderNumber(id int64) string {
	return fmt.Sprintf("ORD-%05d", id)
}

// GetByID loads one order with its items; nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Where("id = ?", id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListForOwner returns one page of the owner's orders, newest first. The
// cursor points at the last row of the previous page; limit rows plus one
// are requested so the caller can detect whether another page exists.
func (r *Repository) ListForOwner(ctx context.Context, owner cart.Owner, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if owner.UserID != nil {
		q = q.Where("user_id = ?", *owner.UserID)
	} else if owner.SessionID != nil {
		q = q.Where("guest_session_id = ? AND is_guest_order = ?", *owner.SessionID, true)
	}
	if cursor != nil {
		at, err := cursor.Time()
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", at, at, cursor.ID)
	}

	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus sets the order status.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

// UpdateTotal sets the order total.
func (r *Repository) UpdateTotal(ctx context.Context, orderID, totalKopecks int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("total_kopecks", totalKopecks).Error
}

// CreateItem inserts one item snapshot.
func (r *Repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem saves one item snapshot.
func (r *Repository) UpdateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes one item snapshot.
func (r *Repository) DeleteItem(ctx context.Context, itemID int64) error {
	return r.db.WithContext(ctx).Delete(&models.OrderItem{}, itemID).Error
}

// ReassignGuestOrders moves every guest order of the session onto the user
// in one UPDATE and clears the guest marker fields.
func (r *Repository) ReassignGuestOrders(ctx context.Context, sessionID string, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("guest_session_id = ? AND is_guest_order = ?", sessionID, true).
		Updates(map[string]any{
			"user_id":          userID,
			"is_guest_order":   false,
			"guest_session_id": nil,
			"guest_name":       nil,
			"guest_phone":      nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ReassignUserOrders moves every order of one user onto another user.
func (r *Repository) ReassignUserOrders(ctx context.Context, fromUserID, toUserID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", fromUserID).
		Update("user_id", toUserID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
