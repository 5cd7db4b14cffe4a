package orders

import (
	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
)

func orderOwnedBy(order *models.Order, owner cart.Owner) bool {
	if owner.UserID != nil {
		return order.UserID != nil && *order.UserID == *owner.UserID
	}
	return order.IsGuestOrder && order.GuestSessionID != nil && *order.GuestSessionID == *owner.SessionID
}
