package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
)

// View is the effective per-collection pricing of one product: base product
// fields with the collection override already layered on top. Callers must
// resolve a fresh View before every monetary decision; Views are never
// cached or stored.
type View struct {
	ProductID    int64
	CollectionID int64
	Available    bool
	PriceKopecks int64
	Step         decimal.Decimal
	StockHint    *enums.StockHint
	Title        string
	UnitLabel    string
	ImagePath    *string
}

// Unavailable is the safe sentinel returned for missing or disabled
// products. It never errors so list rendering can degrade per position.
func Unavailable(productID, collectionID int64) View {
	out := enums.StockHintOut
	return View{
		ProductID:    productID,
		CollectionID: collectionID,
		Available:    false,
		PriceKopecks: 0,
		Step:         decimal.NewFromInt(1),
		StockHint:    &out,
	}
}

type catalogReader interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetCollectionProduct(ctx context.Context, collectionID, productID int64) (*models.CollectionProduct, error)
}

// Resolver computes effective pricing views.
type Resolver interface {
	Resolve(ctx context.Context, productID, collectionID int64) (View, error)
}

type resolver struct {
	catalog catalogReader
}

// NewResolver builds a resolver over the catalog reader.
func NewResolver(catalog catalogReader) (Resolver, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &resolver{catalog: catalog}, nil
}

// Resolve layers the (collection, product) override over the base product.
// Override fields shadow base fields only when set; an unset field always
// falls through. A missing or inactive product resolves to the unavailable
// sentinel, not an error.
func (r *resolver) Resolve(ctx context.Context, productID, collectionID int64) (View, error) {
	product, err := r.catalog.GetProduct(ctx, productID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product == nil || !product.IsActive {
		return Unavailable(productID, collectionID), nil
	}

	override, err := r.catalog.GetCollectionProduct(ctx, collectionID, productID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collection override")
	}

	view := View{
		ProductID:    productID,
		CollectionID: collectionID,
		Available:    true,
		PriceKopecks: product.PriceKopecks,
		Step:         product.Step,
		StockHint:    product.StockHint,
		Title:        product.Title,
		UnitLabel:    product.UnitLabel,
		ImagePath:    product.ImagePath,
	}

	if override != nil {
		if !override.IsActive {
			view.Available = false
		}
		if override.PriceKopecks != nil {
			view.PriceKopecks = *override.PriceKopecks
		}
		if override.Step != nil {
			view.Step = *override.Step
		}
		if override.StockHint != nil {
			view.StockHint = override.StockHint
		}
	}

	if view.StockHint != nil && *view.StockHint == enums.StockHintOut {
		view.Available = false
	}
	if view.Step.Sign() <= 0 {
		view.Step = decimal.NewFromInt(1)
	}

	return view, nil
}
