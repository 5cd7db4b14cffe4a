package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/pagination"
)

// Entry is one catalog position as shown inside a collection: base product
// fields with the collection override already applied.
type Entry struct {
	ProductID    int64            `json:"product_id"`
	Title        string           `json:"title"`
	UnitLabel    string           `json:"unit_label"`
	PriceKopecks int64            `json:"price_kopecks"`
	Step         decimal.Decimal  `json:"step"`
	Available    bool             `json:"available"`
	StockHint    *enums.StockHint `json:"stock_hint,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	ImagePath    *string          `json:"image_path,omitempty"`
}

// Page is one cursor page of catalog entries. Entries sort by title, the
// cursor keys on (title, product id). An empty NextCursor means last page.
type Page struct {
	Entries    []Entry `json:"products"`
	NextCursor string  `json:"next_cursor"`
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogKey(parts ...string) string
}

// Service exposes collection and catalog reads. Listing goes through a short
// TTL cache; everything that prices an order reads the DB directly.
type Service interface {
	ActiveCollection(ctx context.Context) (*models.Collection, error)
	GetCollection(ctx context.Context, id int64) (*models.Collection, error)
	ListCatalog(ctx context.Context, collectionID int64, p pagination.Params) (*Page, error)
	InvalidateCollection(ctx context.Context, collectionID int64)
}

type service struct {
	repo     *Repository
	cache    cache
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService builds a catalog service. The cache is optional; nil disables it.
func NewService(repo *Repository, cache cache, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logg:     logg,
	}, nil
}

// ActiveCollection returns the collection currently open for orders.
func (s *service) ActiveCollection(ctx context.Context) (*models.Collection, error) {
	record, err := s.repo.FindActiveCollection(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active collection")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveCollection, "no collection is currently open for orders")
	}
	return record, nil
}

// GetCollection returns one collection by id.
func (s *service) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	record, err := s.repo.GetCollection(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collection")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCollectionNotFound, "collection not found")
	}
	return record, nil
}

// ListCatalog returns one page of the merged product list for one
// collection. The whole merged list is cached per collection; the cursor
// page is cut after the cache so every page rides the same cached copy.
func (s *service) ListCatalog(ctx context.Context, collectionID int64, p pagination.Params) (*Page, error) {
	if cached, ok := s.cachedEntries(ctx, collectionID); ok {
		return paginateEntries(cached, p)
	}

	collection, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	overrides, err := s.repo.ListCollectionProducts(ctx, collection.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list collection overrides")
	}

	overrideByProduct := make(map[int64]models.CollectionProduct, len(overrides))
	for _, o := range overrides {
		overrideByProduct[o.ProductID] = o
	}

	entries := make([]Entry, 0, len(products))
	for _, p := range products {
		entries = append(entries, mergeEntry(p, overrideByProduct))
	}

	s.storeEntries(ctx, collectionID, entries)
	return paginateEntries(entries, p)
}

func paginateEntries(entries []Entry, p pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(p.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	start := 0
	if cursor != nil {
		for start < len(entries) {
			e := entries[start]
			if e.Title > cursor.Key || (e.Title == cursor.Key && e.ProductID > cursor.ID) {
				break
			}
			start++
		}
	}

	limit := pagination.NormalizeLimit(p.Limit)
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}

	page := &Page{Entries: entries[start:end]}
	if end < len(entries) && end > start {
		last := entries[end-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{Key: last.Title, ID: last.ProductID})
	}
	return page, nil
}

// InvalidateCollection drops the cached catalog for one collection.
func (s *service) InvalidateCollection(ctx context.Context, collectionID int64) {
	if s.cache == nil {
		return
	}
	key := s.cache.CatalogKey("collection", strconv.FormatInt(collectionID, 10))
	if err := s.cache.Del(ctx, key); err != nil {
		s.logg.Warn(s.logg.WithCollectionID(ctx, collectionID), "dropping catalog cache failed")
	}
}

func mergeEntry(p models.Product, overrides map[int64]models.CollectionProduct) Entry {
	entry := Entry{
		ProductID:    p.ID,
		Title:        p.Title,
		UnitLabel:    p.UnitLabel,
		PriceKopecks: p.PriceKopecks,
		Step:         p.Step,
		Available:    p.IsActive,
		StockHint:    p.StockHint,
		Tags:         p.Tags,
		ImagePath:    p.ImagePath,
	}

	o, ok := overrides[p.ID]
	if !ok {
		entry.Available = entry.Available && !hintIsOut(entry.StockHint)
		return entry
	}

	if !o.IsActive {
		entry.Available = false
	}
	if o.PriceKopecks != nil {
		entry.PriceKopecks = *o.PriceKopecks
	}
	if o.Step != nil {
		entry.Step = *o.Step
	}
	if o.StockHint != nil {
		entry.StockHint = o.StockHint
	}
	entry.Available = entry.Available && !hintIsOut(entry.StockHint)
	return entry
}

func hintIsOut(hint *enums.StockHint) bool {
	return hint != nil && *hint == enums.StockHintOut
}

func (s *service) cachedEntries(ctx context.Context, collectionID int64) ([]Entry, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	key := s.cache.CatalogKey("collection", strconv.FormatInt(collectionID, 10))
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// stale or corrupt payload, fall through to the DB
		_ = s.cache.Del(ctx, key)
		return nil, false
	}
	return entries, true
}

func (s *service) storeEntries(ctx context.Context, collectionID int64, entries []Entry) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	key := s.cache.CatalogKey("collection", strconv.FormatInt(collectionID, 10))
	if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithCollectionID(ctx, collectionID), "writing catalog cache failed")
	}
}
