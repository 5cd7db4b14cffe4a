package users

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/auth"
	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.FavoriteProduct{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "sborka",
		ExpirationMinutes: 60,
	}
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(db),
		JWTConfig: testJWTConfig(),
		PasswordCfg: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Email:    " Anna@Example.COM ",
		Password: "correct horse",
		Name:     "Anna",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Email != "anna@example.com" {
		t.Fatalf("email not normalized: %q", registered.User.Email)
	}
	if registered.User.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if registered.AccessToken == "" {
		t.Fatal("expected access token")
	}

	claims, err := auth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Fatalf("token user id = %d, want %d", claims.UserID, registered.User.ID)
	}

	logged, err := svc.Login(ctx, "ANNA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.ID != registered.User.ID {
		t.Fatalf("login user id = %d, want %d", logged.User.ID, registered.User.ID)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "correct horse"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Register(ctx, RegisterInput{Email: "anna@example.com", Password: "short"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	input := RegisterInput{Email: "anna@example.com", Password: "correct horse"}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "anna@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, "anna@example.com", "wrong password")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "correct horse")
	unknownTyped := pkgerrors.As(unknownErr)
	if unknownTyped == nil || unknownTyped.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", unknownErr)
	}
	if typed.Error() != unknownTyped.Error() {
		t.Fatal("credential errors should not reveal whether the account exists")
	}
}

func TestFavorites(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "anna@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	userID := registered.User.ID

	if err := svc.AddFavorite(ctx, userID, 10); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if err := svc.AddFavorite(ctx, userID, 10); err != nil {
		t.Fatalf("add favorite twice: %v", err)
	}
	if err := svc.AddFavorite(ctx, userID, 7); err != nil {
		t.Fatalf("add favorite: %v", err)
	}

	ids, err := svc.ListFavorites(ctx, userID)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 10 {
		t.Fatalf("favorites = %v, want [7 10]", ids)
	}

	if err := svc.RemoveFavorite(ctx, userID, 10); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	ids, err = svc.ListFavorites(ctx, userID)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("favorites = %v, want [7]", ids)
	}
}
