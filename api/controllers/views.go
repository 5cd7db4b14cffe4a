package controllers

import (
	"time"

	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
)

// OrderItemView is the wire shape of one frozen order position.
type OrderItemView struct {
	ID               int64   `json:"id"`
	ProductID        int64   `json:"product_id"`
	Title            string  `json:"title"`
	UnitLabel        string  `json:"unit_label"`
	Quantity         string  `json:"quantity"`
	Step             string  `json:"step"`
	UnitPriceKopecks int64   `json:"unit_price_kopecks"`
	SubtotalKopecks  int64   `json:"subtotal_kopecks"`
	ImagePath        *string `json:"image_path,omitempty"`
}

// OrderView is the wire shape of an order.
type OrderView struct {
	ID                  int64           `json:"id"`
	OrderNumber         string          `json:"order_number"`
	CollectionID        int64           `json:"collection_id"`
	Status              string          `json:"status"`
	TotalKopecks        int64           `json:"total_kopecks"`
	DeliveryType        string          `json:"delivery_type"`
	DeliveryAddress     *string         `json:"delivery_address,omitempty"`
	DeliveryCostKopecks int64           `json:"delivery_cost_kopecks"`
	IsGuestOrder        bool            `json:"is_guest_order"`
	Items               []OrderItemView `json:"items"`
	CreatedAt           time.Time       `json:"created_at"`
}

func orderView(order *models.Order) OrderView {
	view := OrderView{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CollectionID:        order.CollectionID,
		Status:              string(order.Status),
		TotalKopecks:        order.TotalKopecks,
		DeliveryType:        string(order.DeliveryType),
		DeliveryAddress:     order.DeliveryAddress,
		DeliveryCostKopecks: order.DeliveryCostKopecks,
		IsGuestOrder:        order.IsGuestOrder,
		Items:               make([]OrderItemView, 0, len(order.Items)),
		CreatedAt:           order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:               item.ID,
			ProductID:        item.ProductID,
			Title:            item.Title,
			UnitLabel:        item.UnitLabel,
			Quantity:         item.Quantity.String(),
			Step:             item.Step.String(),
			UnitPriceKopecks: item.UnitPriceKopecks,
			SubtotalKopecks:  item.SubtotalKopecks,
			ImagePath:        item.ImagePath,
		})
	}
	return view
}

func orderViews(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, orderView(&orders[i]))
	}
	return views
}

// CartLineView is the wire shape of one re-priced cart line.
type CartLineView struct {
	ID               int64  `json:"id"`
	ProductID        int64  `json:"product_id"`
	Title            string `json:"title"`
	UnitLabel        string `json:"unit_label"`
	Quantity         string `json:"quantity"`
	UnitPriceKopecks int64  `json:"unit_price_kopecks"`
	SubtotalKopecks  int64  `json:"subtotal_kopecks"`
	Available        bool   `json:"available"`
	Problem          string `json:"problem,omitempty"`
}

// CartView is the wire shape of the cart snapshot.
type CartView struct {
	CollectionID int64          `json:"collection_id"`
	Lines        []CartLineView `json:"lines"`
	TotalKopecks int64          `json:"total_kopecks"`
}

func cartView(snapshot *cart.Snapshot) CartView {
	view := CartView{
		CollectionID: snapshot.CollectionID,
		Lines:        make([]CartLineView, 0, len(snapshot.Lines)),
		TotalKopecks: snapshot.TotalKopecks,
	}
	for _, line := range snapshot.Lines {
		view.Lines = append(view.Lines, CartLineView{
			ID:               line.Item.ID,
			ProductID:        line.Item.ProductID,
			Title:            line.Title,
			UnitLabel:        line.UnitLabel,
			Quantity:         line.Item.Quantity.String(),
			UnitPriceKopecks: line.Item.UnitPriceKopecks,
			SubtotalKopecks:  line.SubtotalKopecks,
			Available:        line.Available,
			Problem:          line.Problem,
		})
	}
	return view
}

// UserView is the wire shape of an account profile.
type UserView struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         *string   `json:"phone,omitempty"`
	TelegramID    *string   `json:"telegram_id,omitempty"`
	IsAdmin       bool      `json:"is_admin"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
}

func userView(user *models.User) UserView {
	return UserView{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Phone:         user.Phone,
		TelegramID:    user.TelegramID,
		IsAdmin:       user.IsAdmin,
		LoyaltyPoints: user.LoyaltyPoints,
		CreatedAt:     user.CreatedAt,
	}
}

// CollectionView is the wire shape of a collection header.
type CollectionView struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Status   string     `json:"status"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

func collectionView(collection *models.Collection) CollectionView {
	return CollectionView{
		ID:       collection.ID,
		Title:    collection.Title,
		Status:   string(collection.Status),
		StartsAt: collection.StartsAt,
		EndsAt:   collection.EndsAt,
	}
}
