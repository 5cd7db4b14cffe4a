package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/api/responses"
	"github.com/avdeevlav/sborka-backend/api/validators"
	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/qty"
)

type cartAddRequest struct {
	CollectionID int64  `json:"collection_id" validate:"required,gt=0"`
	ProductID    int64  `json:"product_id" validate:"required,gt=0"`
	Quantity     string `json:"quantity" validate:"required"`
}

type cartQuantityRequest struct {
	Quantity string `json:"quantity" validate:"required"`
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	quantity, err := qty.ParsePositive(raw)
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity").
			WithDetails(map[string]any{"quantity": raw})
	}
	return quantity, nil
}

func CartFetch(cartService cart.Service, catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cartService == nil || catalogService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		owner, err := ownerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		collectionID, err := validators.ParseQueryID(r, "collection_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if collectionID == 0 {
			collection, err := catalogService.ActiveCollection(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			collectionID = collection.ID
		}

		snapshot, err := cartService.GetCart(r.Context(), owner, collectionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView(snapshot))
	}
}

func CartAddItem(cartService cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cartService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		owner, err := ownerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cartAddRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := parseQuantity(req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := cartService.AddItem(r.Context(), owner, req.CollectionID, req.ProductID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":         line.ID,
			"product_id": line.ProductID,
			"quantity":   line.Quantity.String(),
		})
	}
}

func CartUpdateItem(cartService cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cartService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		owner, err := ownerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := parseQuantity(req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := cartService.UpdateItemQuantity(r.Context(), owner, lineID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"id":         line.ID,
			"product_id": line.ProductID,
			"quantity":   line.Quantity.String(),
		})
	}
}

func CartRemoveItem(cartService cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cartService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		owner, err := ownerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineID, err := validators.ParsePathID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := cartService.RemoveItem(r.Context(), owner, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": lineID})
	}
}
