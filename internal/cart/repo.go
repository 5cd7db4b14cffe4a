package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
)

// Repository manages persistent cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
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

// ListForOwner returns every cart line of the owner across collections.
func (r *Repository) ListForOwner(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := owner.scope(r.db.WithContext(ctx)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForOwnerCollection returns the owner's lines inside one collection.
func (r *Repository) ListForOwnerCollection(ctx context.Context, owner Owner, collectionID int64) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := owner.scope(r.db.WithContext(ctx)).
		Where("collection_id = ?", collectionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CollectionIDs returns the distinct collections the owner has lines in.
func (r *Repository) CollectionIDs(ctx context.Context, owner Owner) ([]int64, error) {
	var ids []int64
	if err := owner.scope(r.db.WithContext(ctx).Model(&models.CartItem{})).
		Distinct("collection_id").
		Order("collection_id ASC").
		Pluck("collection_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindLine loads the owner's line for a (collection, product) pair; nil when
// absent.
func (r *Repository) FindLine(ctx context.Context, owner Owner, collectionID, productID int64) (*models.CartItem, error) {
	var record models.CartItem
	err := owner.scope(r.db.WithContext(ctx)).
		Where("collection_id = ? AND product_id = ?", collectionID, productID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetLine loads one line by id; nil when absent.
func (r *Repository) GetLine(ctx context.Context, id int64) (*models.CartItem, error) {
	var record models.CartItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new cart line.
func (r *Repository) Create(ctx context.Context, record *models.CartItem) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update saves the provided cart line.
func (r *Repository) Update(ctx context.Context, record *models.CartItem) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Delete removes one line by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, id).Error
}

// DeleteForOwnerCollection removes the owner's lines inside one collection.
// Checkout calls this inside its transaction after snapshotting the order.
func (r *Repository) DeleteForOwnerCollection(ctx context.Context, owner Owner, collectionID int64) error {
	return owner.scope(r.db.WithContext(ctx)).
		Where("collection_id = ?", collectionID).
		Delete(&models.CartItem{}).Error
}
