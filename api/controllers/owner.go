package controllers

import (
	"context"

	"github.com/avdeevlav/sborka-backend/api/middleware"
	"github.com/avdeevlav/sborka-backend/internal/cart"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
)

// ownerFromContext derives the cart owner for the request. An authenticated
// user always wins over the guest session riding the same request.
func ownerFromContext(ctx context.Context) (cart.Owner, error) {
	if userID := middleware.UserIDFromContext(ctx); userID > 0 {
		return cart.UserOwner(userID), nil
	}
	if sessionID := middleware.SessionIDFromContext(ctx); sessionID != "" {
		return cart.GuestOwner(sessionID), nil
	}
	return cart.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user or session identity")
}
