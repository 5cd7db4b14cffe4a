package controllers

import (
	"net/http"

	"github.com/avdeevlav/sborka-backend/api/middleware"
	"github.com/avdeevlav/sborka-backend/api/responses"
	"github.com/avdeevlav/sborka-backend/api/validators"
	"github.com/avdeevlav/sborka-backend/internal/merge"
	"github.com/avdeevlav/sborka-backend/internal/users"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     string  `json:"name" validate:"max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User        UserView `json:"user"`
	AccessToken string   `json:"access_token"`
}

// AuthRegister creates an account and immediately absorbs any guest cart
// riding the request's session into it.
func AuthRegister(usersService users.Service, mergeService merge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if usersService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := usersService.Register(r.Context(), users.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Phone:    req.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		absorbGuestCart(r, mergeService, result.User.ID, logg)

		responses.WriteSuccessStatus(w, http.StatusCreated, authResponse{
			User:        userView(result.User),
			AccessToken: result.AccessToken,
		})
	}
}

// AuthLogin exchanges credentials for an access token. A guest cart riding
// the request's session is merged into the account on success.
func AuthLogin(usersService users.Service, mergeService merge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if usersService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := usersService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		absorbGuestCart(r, mergeService, result.User.ID, logg)

		responses.WriteSuccess(w, authResponse{
			User:        userView(result.User),
			AccessToken: result.AccessToken,
		})
	}
}

// absorbGuestCart is best-effort: a merge failure never blocks the login.
func absorbGuestCart(r *http.Request, mergeService merge.Service, userID int64, logg *logger.Logger) {
	if mergeService == nil {
		return
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return
	}
	if _, err := mergeService.MergeGuestIntoUser(r.Context(), sessionID, userID); err != nil && logg != nil {
		ctx := logg.WithUserID(r.Context(), userID)
		logg.Error(ctx, "guest cart merge on login failed", err)
	}
}
