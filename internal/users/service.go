package users

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/avdeevlav/sborka-backend/pkg/auth"
	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/db"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid email or password"
	minPasswordLength         = 8
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        *models.User
	AccessToken string
}

// Service exposes account registration, login and profile reads.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	AddFavorite(ctx context.Context, userID, productID int64) error
	RemoveFavorite(ctx context.Context, userID, productID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]int64, error)
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo        *Repository
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
	Logger      *logger.Logger
}

type service struct {
	repo        *Repository
	jwtConfig   config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService validates dependencies and returns a users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "jwt secret is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &service{
		repo:        params.Repo,
		jwtConfig:   params.JWTConfig,
		passwordCfg: params.PasswordCfg,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := NormalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is too short").
			WithDetails(map[string]any{"min_length": minPasswordLength})
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check email")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Phone:        input.Phone,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID), "user registered")
	return s.issueToken(user)
}

func (s *service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID), "password hash is unreadable", err)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.issueToken(user)
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

func (s *service) AddFavorite(ctx context.Context, userID, productID int64) error {
	if err := s.repo.AddFavorite(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add favorite")
	}
	return nil
}

func (s *service) RemoveFavorite(ctx context.Context, userID, productID int64) error {
	if err := s.repo.RemoveFavorite(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove favorite")
	}
	return nil
}

func (s *service) ListFavorites(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.repo.ListFavoriteProductIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list favorites")
	}
	return ids, nil
}

func (s *service) issueToken(user *models.User) (*AuthResult, error) {
	token, err := auth.MintAccessToken(s.jwtConfig, s.now(), auth.AccessTokenPayload{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint access token")
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}
