package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/internal/pricing"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
)

type collectionLoader interface {
	GetCollection(ctx context.Context, id int64) (*models.Collection, error)
}

// Line is one validated cart position with its freshly priced subtotal.
type Line struct {
	Item            models.CartItem
	Title           string
	UnitLabel       string
	Available       bool
	SubtotalKopecks int64
	Problem         string
}

// Snapshot is the owner's cart inside one collection, re-priced at read time.
type Snapshot struct {
	CollectionID int64
	Lines        []Line
	TotalKopecks int64
}

// Service exposes cart operations. Every write re-resolves pricing; the
// stored unit price is advisory and is never trusted for money.
type Service interface {
	AddItem(ctx context.Context, owner Owner, collectionID, productID int64, quantity decimal.Decimal) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, lineID int64, quantity decimal.Decimal) (*models.CartItem, error)
	RemoveItem(ctx context.Context, owner Owner, lineID int64) error
	GetCart(ctx context.Context, owner Owner, collectionID int64) (*Snapshot, error)
}

type service struct {
	repo     *Repository
	resolver pricing.Resolver
	catalog  collectionLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, resolver pricing.Resolver, catalog collectionLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("collection loader required")
	}
	return &service{repo: repo, resolver: resolver, catalog: catalog}, nil
}

// AddItem validates the quantity against fresh pricing and upserts the
// owner's line. Adding a product already in the cart sums the quantities,
// and the summed quantity is validated again.
func (s *service) AddItem(ctx context.Context, owner Owner, collectionID, productID int64, quantity decimal.Decimal) (*models.CartItem, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be a user or a guest session")
	}
	if err := s.requireActiveCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	view, err := s.resolver.Resolve(ctx, productID, collectionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindLine(ctx, owner, collectionID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	target := quantity
	if existing != nil {
		target = existing.Quantity.Add(quantity)
	}

	unitPrice, _, err := ValidateAndPrice(view, target)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Quantity = target
		existing.UnitPriceKopecks = unitPrice
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		return existing, nil
	}

	record := &models.CartItem{
		UserID:           owner.UserID,
		SessionID:        owner.SessionID,
		CollectionID:     collectionID,
		ProductID:        productID,
		Quantity:         target,
		UnitPriceKopecks: unitPrice,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert cart line")
	}
	return record, nil
}

// UpdateItemQuantity replaces the quantity on an existing line after
// re-validating it against fresh pricing.
func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, lineID int64, quantity decimal.Decimal) (*models.CartItem, error) {
	line, err := s.ownedLine(ctx, owner, lineID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveCollection(ctx, line.CollectionID); err != nil {
		return nil, err
	}

	view, err := s.resolver.Resolve(ctx, line.ProductID, line.CollectionID)
	if err != nil {
		return nil, err
	}
	unitPrice, _, err := ValidateAndPrice(view, quantity)
	if err != nil {
		return nil, err
	}

	line.Quantity = quantity
	line.UnitPriceKopecks = unitPrice
	if err := s.repo.Update(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return line, nil
}

// RemoveItem deletes one of the owner's lines.
func (s *service) RemoveItem(ctx context.Context, owner Owner, lineID int64) error {
	line, err := s.ownedLine(ctx, owner, lineID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, line.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	return nil
}

// GetCart returns the owner's cart in one collection with every line
// re-priced now. Lines that fail validation are kept visible with a problem
// marker and excluded from the total.
func (s *service) GetCart(ctx context.Context, owner Owner, collectionID int64) (*Snapshot, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be a user or a guest session")
	}

	items, err := s.repo.ListForOwnerCollection(ctx, owner, collectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}

	snapshot := &Snapshot{CollectionID: collectionID, Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		view, err := s.resolver.Resolve(ctx, item.ProductID, collectionID)
		if err != nil {
			return nil, err
		}

		line := Line{
			Item:      item,
			Title:     view.Title,
			UnitLabel: view.UnitLabel,
			Available: view.Available,
		}
		if _, subtotal, verr := ValidateAndPrice(view, item.Quantity); verr == nil {
			line.SubtotalKopecks = subtotal
			snapshot.TotalKopecks += subtotal
		} else if typed := pkgerrors.As(verr); typed != nil {
			line.Problem = string(typed.Code())
		} else {
			line.Problem = string(pkgerrors.CodeInternal)
		}
		snapshot.Lines = append(snapshot.Lines, line)
	}

	return snapshot, nil
}

func (s *service) ownedLine(ctx context.Context, owner Owner, lineID int64) (*models.CartItem, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be a user or a guest session")
	}
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	if line == nil || !ownerMatches(owner, line) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return line, nil
}

func (s *service) requireActiveCollection(ctx context.Context, collectionID int64) error {
	collection, err := s.catalog.GetCollection(ctx, collectionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collection")
	}
	if collection == nil {
		return pkgerrors.New(pkgerrors.CodeCollectionNotFound, "collection not found")
	}
	if collection.Status != enums.CollectionStatusActive {
		return pkgerrors.New(pkgerrors.CodeCollectionNotActive, "collection is not open for orders")
	}
	return nil
}

func ownerMatches(owner Owner, line *models.CartItem) bool {
	if owner.UserID != nil {
		return line.UserID != nil && *line.UserID == *owner.UserID
	}
	return line.SessionID != nil && *line.SessionID == *owner.SessionID
}
