package controllers

import (
	"net/http"

	"github.com/avdeevlav/sborka-backend/api/middleware"
	"github.com/avdeevlav/sborka-backend/api/responses"
	"github.com/avdeevlav/sborka-backend/api/validators"
	"github.com/avdeevlav/sborka-backend/internal/merge"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

type mergeAccountsRequest struct {
	SourceUserID int64 `json:"source_user_id" validate:"required,gt=0"`
	TargetUserID int64 `json:"target_user_id" validate:"required,gt=0"`
}

// CartMerge absorbs the request's guest session cart into the authenticated
// account on demand, for clients that log in out of band.
func CartMerge(mergeService merge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mergeService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merge service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing guest session"))
			return
		}

		result, err := mergeService.MergeGuestIntoUser(r.Context(), sessionID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"cart_lines_moved":   result.CartLinesMoved,
			"cart_lines_merged":  result.CartLinesMerged,
			"cart_lines_skipped": result.CartLinesSkipped,
			"orders_reassigned":  result.OrdersReassigned,
		})
	}
}

// AdminMergeAccounts folds one account into another. Admin only.
func AdminMergeAccounts(mergeService merge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mergeService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merge service unavailable"))
			return
		}

		var req mergeAccountsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.SourceUserID == req.TargetUserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cannot merge an account into itself"))
			return
		}

		if err := mergeService.MergeAccounts(r.Context(), req.SourceUserID, req.TargetUserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"source_user_id": req.SourceUserID,
			"target_user_id": req.TargetUserID,
		})
	}
}
