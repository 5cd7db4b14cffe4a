package users

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
)

// Repository manages user accounts and favorites.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID loads one user; nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var record models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByEmail loads a user by normalized email; nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var record models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// AddFavorite stars a product for the user, idempotently.
func (r *Repository) AddFavorite(ctx context.Context, userID, productID int64) error {
	existing := int64(0)
	if err := r.db.WithContext(ctx).
		Model(&models.FavoriteProduct{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.FavoriteProduct{UserID: userID, ProductID: productID}).Error
}

// RemoveFavorite unstars a product.
func (r *Repository) RemoveFavorite(ctx context.Context, userID, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.FavoriteProduct{}).Error
}

// ListFavoriteProductIDs returns the user's starred product ids.
func (r *Repository) ListFavoriteProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.FavoriteProduct{}).
		Where("user_id = ?", userID).
		Order("product_id ASC").
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
