package controllers

import (
	"net/http"

	"github.com/avdeevlav/sborka-backend/api/middleware"
	"github.com/avdeevlav/sborka-backend/api/responses"
	"github.com/avdeevlav/sborka-backend/api/validators"
	"github.com/avdeevlav/sborka-backend/internal/checkout"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

type checkoutRequest struct {
	CollectionID    int64   `json:"collection_id" validate:"omitempty,gt=0"`
	DeliveryType    string  `json:"delivery_type" validate:"required,oneof=pickup courier shipping"`
	DeliveryAddress *string `json:"delivery_address" validate:"omitempty,max=512"`
	GuestName       string  `json:"guest_name" validate:"omitempty,max=255"`
	GuestPhone      string  `json:"guest_phone" validate:"omitempty,max=32"`
}

type checkoutResponse struct {
	Orders []OrderView `json:"orders"`
	Failed bool        `json:"failed,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Checkout turns the caller's cart into one order per collection. With a
// collection_id in the body only that collection is submitted.
func Checkout(checkoutService checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checkoutService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		owner, err := ownerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryType, err := enums.ParseDeliveryType(req.DeliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery type"))
			return
		}

		delivery := checkout.DeliveryInput{
			Type:    deliveryType,
			Address: req.DeliveryAddress,
		}

		var guest *checkout.GuestInfo
		if middleware.UserIDFromContext(r.Context()) == 0 {
			guest = &checkout.GuestInfo{Name: req.GuestName, Phone: req.GuestPhone}
		}

		if req.CollectionID > 0 {
			order, err := checkoutService.CreateOrder(r.Context(), owner, req.CollectionID, delivery, guest)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Orders: []OrderView{orderView(order)}})
			return
		}

		result, err := checkoutService.CreateOrders(r.Context(), owner, delivery, guest)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkoutResponse{Orders: make([]OrderView, 0, len(result.Orders))}
		for _, order := range result.Orders {
			resp.Orders = append(resp.Orders, orderView(order))
		}
		if result.Err != nil {
			resp.Failed = true
			resp.Error = result.Err.Error()
		}

		status := http.StatusCreated
		if len(resp.Orders) == 0 {
			responses.WriteError(r.Context(), logg, w, result.Err)
			return
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}
