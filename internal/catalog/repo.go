package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// Repository exposes read/write access to collections, products and
// per-collection overrides.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
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

// GetCollection loads one collection; nil when it does not exist.
func (r *Repository) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	var record models.Collection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindActiveCollection returns the most recently started active collection,
// or nil when no collection is currently open.
func (r *Repository) FindActiveCollection(ctx context.Context) (*models.Collection, error) {
	var record models.Collection
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.CollectionStatusActive).
		Order("starts_at DESC, id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListActiveCollections returns every collection currently open for orders.
func (r *Repository) ListActiveCollections(ctx context.Context) ([]models.Collection, error) {
	var rows []models.Collection
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.CollectionStatusActive).
		Order("starts_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetProduct loads one product; nil when it does not exist.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var record models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListProducts returns catalog products, optionally restricted to active ones.
func (r *Repository) ListProducts(ctx context.Context, onlyActive bool) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Order("title ASC, id ASC")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetCollectionProduct loads the override row for a (collection, product)
// pair; nil means no override exists and base product fields apply.
func (r *Repository) GetCollectionProduct(ctx context.Context, collectionID, productID int64) (*models.CollectionProduct, error) {
	var record models.CollectionProduct
	err := r.db.WithContext(ctx).
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

// ListCollectionProducts returns every override row for one collection.
func (r *Repository) ListCollectionProducts(ctx context.Context, collectionID int64) ([]models.CollectionProduct, error) {
	var rows []models.CollectionProduct
	if err := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertCollectionProduct inserts or updates an override row.
func (r *Repository) UpsertCollectionProduct(ctx context.Context, record *models.CollectionProduct) error {
	existing, err := r.GetCollectionProduct(ctx, record.CollectionID, record.ProductID)
	if err != nil {
		return err
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	return r.db.WithContext(ctx).Save(record).Error
}
