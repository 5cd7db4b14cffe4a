package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/qty"
)

// OrderCreatedPayload is the queued body for an order notification.
type OrderCreatedPayload struct {
	OrderID      int64              `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	CollectionID int64              `json:"collection_id"`
	TotalKopecks int64              `json:"total_kopecks"`
	IsGuestOrder bool               `json:"is_guest_order"`
	CustomerName string             `json:"customer_name,omitempty"`
	Items        []OrderPayloadItem `json:"items"`
}

// OrderPayloadItem is one snapshot line inside the payload.
type OrderPayloadItem struct {
	Title           string `json:"title"`
	Quantity        string `json:"quantity"`
	UnitLabel       string `json:"unit_label"`
	SubtotalKopecks int64  `json:"subtotal_kopecks"`
}

// ReferencePayload is the queued body for review and recipe
// notifications: just the id of the referenced record.
type ReferencePayload struct {
	ID int64 `json:"id"`
}

// Service enqueues outbound notifications. Delivery belongs to the worker.
type Service interface {
	EnqueueOrderCreated(ctx context.Context, order *models.Order) error
	EnqueueReference(ctx context.Context, typ enums.NotificationType, id int64) error
}

type service struct {
	repo *Repository
}

// NewService builds the enqueue-side notification service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	return &service{repo: repo}, nil
}

// EnqueueOrderCreated queues an admin notification for a fresh order.
func (s *service) EnqueueOrderCreated(ctx context.Context, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	payload := OrderCreatedPayload{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CollectionID: order.CollectionID,
		TotalKopecks: order.TotalKopecks,
		IsGuestOrder: order.IsGuestOrder,
	}
	if order.GuestName != nil {
		payload.CustomerName = *order.GuestName
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, OrderPayloadItem{
			Title:           item.Title,
			Quantity:        qty.String(item.Quantity),
			UnitLabel:       item.UnitLabel,
			SubtotalKopecks: item.SubtotalKopecks,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order payload")
	}

	task := &models.NotificationTask{
		Type:    enums.NotificationTypeOrder,
		Payload: body,
	}
	if err := s.repo.Enqueue(ctx, task); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enqueue notification")
	}
	return nil
}

// EnqueueReference queues a review or recipe notification carrying only
// the id of the referenced record.
func (s *service) EnqueueReference(ctx context.Context, typ enums.NotificationType, id int64) error {
	if typ != enums.NotificationTypeReview && typ != enums.NotificationTypeRecipe {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported reference notification type %q", typ))
	}
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}

	body, err := json.Marshal(ReferencePayload{ID: id})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal reference payload")
	}

	task := &models.NotificationTask{
		Type:    typ,
		Payload: body,
	}
	if err := s.repo.Enqueue(ctx, task); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enqueue notification")
	}
	return nil
}
