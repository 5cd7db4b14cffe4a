package merge

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/orders"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GuestMergeResult reports what a guest→user merge accomplished.
type GuestMergeResult struct {
	CartLinesMoved   int
	CartLinesMerged  int
	CartLinesSkipped int
	OrdersReassigned int64
}

// Service folds guest session data into user accounts and merges duplicate
// accounts. The guest path is best-effort per line; the account path is
// all-or-nothing.
type Service interface {
	MergeGuestIntoUser(ctx context.Context, sessionID string, userID int64) (*GuestMergeResult, error)
	MergeAccounts(ctx context.Context, sourceUserID, targetUserID int64) error
}

type service struct {
	cartRepo   *cart.Repository
	ordersRepo *orders.Repository
	tx         txRunner
	logg       *logger.Logger
}

// NewService builds the merge service.
func NewService(cartRepo *cart.Repository, ordersRepo *orders.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		tx:         tx,
		logg:       logg,
	}, nil
}

// MergeGuestIntoUser moves the guest session's cart lines and orders onto
// the user. Cart lines merge by (collection, product): an existing user
// line absorbs the guest quantity, otherwise the line is reassigned in
// place. A line that fails is skipped and logged, never fatal.
func (s *service) MergeGuestIntoUser(ctx context.Context, sessionID string, userID int64) (*GuestMergeResult, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	guest := cart.GuestOwner(sessionID)
	user := cart.UserOwner(userID)
	result := &GuestMergeResult{}

	lines, err := s.cartRepo.ListForOwner(ctx, guest)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list guest cart lines")
	}

	for _, line := range lines {
		absorbed, err := s.mergeLine(ctx, user, line)
		if err != nil {
			result.CartLinesSkipped++
			fields := map[string]any{"cart_item_id": line.ID, "product_id": line.ProductID}
			s.logg.Error(s.logg.WithFields(ctx, fields), "merging guest cart line failed, skipped", err)
			continue
		}
		if absorbed {
			result.CartLinesMerged++
		} else {
			result.CartLinesMoved++
		}
	}

	moved, err := s.ordersRepo.ReassignGuestOrders(ctx, sessionID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign guest orders")
	}
	result.OrdersReassigned = moved

	return result, nil
}

// mergeLine folds one guest line into the user's cart inside its own small
// transaction so a failure cannot corrupt either cart. Returns true when an
// existing user line absorbed the quantity.
func (s *service) mergeLine(ctx context.Context, user cart.Owner, line models.CartItem) (bool, error) {
	var absorbed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)

		existing, err := repo.FindLine(ctx, user, line.CollectionID, line.ProductID)
		if err != nil {
			return err
		}

		if existing != nil {
			absorbed = true
			existing.Quantity = existing.Quantity.Add(line.Quantity)
			if err := repo.Update(ctx, existing); err != nil {
				return err
			}
			return repo.Delete(ctx, line.ID)
		}

		line.UserID = user.UserID
		line.SessionID = nil
		return repo.Update(ctx, &line)
	})
	return absorbed, err
}

// MergeAccounts folds the source account into the target atomically:
// carts, orders, favorites and referral backrefs are reassigned, loyalty
// points are summed, empty target profile fields are filled from the
// source, then the source user is deleted. Any failure rolls back all of it.
func (s *service) MergeAccounts(ctx context.Context, sourceUserID, targetUserID int64) error {
	if sourceUserID <= 0 || targetUserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "both user ids are required")
	}
	if sourceUserID == targetUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot merge an account into itself")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var source, target models.User
		if err := tx.First(&source, sourceUserID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "source user not found")
		}
		if err := tx.First(&target, targetUserID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "target user not found")
		}

		// cart lines move wholesale; colliding (collection, product) pairs
		// are absorbed into the target's line
		sourceLines, err := s.cartRepo.WithTx(tx).ListForOwner(ctx, cart.UserOwner(sourceUserID))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list source cart lines")
		}
		repo := s.cartRepo.WithTx(tx)
		targetOwner := cart.UserOwner(targetUserID)
		for _, line := range sourceLines {
			existing, err := repo.FindLine(ctx, targetOwner, line.CollectionID, line.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load target cart line")
			}
			if existing != nil {
				existing.Quantity = existing.Quantity.Add(line.Quantity)
				if err := repo.Update(ctx, existing); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "absorb cart line")
				}
				if err := repo.Delete(ctx, line.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop source cart line")
				}
				continue
			}
			line.UserID = &targetUserID
			if err := repo.Update(ctx, &line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign cart line")
			}
		}

		if _, err := s.ordersRepo.WithTx(tx).ReassignUserOrders(ctx, sourceUserID, targetUserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign orders")
		}

		// favorites: drop duplicates, move the rest
		if err := tx.Exec(
			`DELETE FROM favorite_products WHERE user_id = ? AND product_id IN
			   (SELECT product_id FROM favorite_products WHERE user_id = ?)`,
			sourceUserID, targetUserID,
		).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop duplicate favorites")
		}
		if err := tx.Model(&models.FavoriteProduct{}).
			Where("user_id = ?", sourceUserID).
			Update("user_id", targetUserID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign favorites")
		}

		// referral backrefs follow the surviving account
		if err := tx.Model(&models.User{}).
			Where("referred_by_id = ?", sourceUserID).
			Update("referred_by_id", targetUserID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign referrals")
		}

		updates := map[string]any{
			"loyalty_points": target.LoyaltyPoints + source.LoyaltyPoints,
		}
		if target.Phone == nil && source.Phone != nil {
			updates["phone"] = *source.Phone
		}
		if target.TelegramID == nil && source.TelegramID != nil {
			updates["telegram_id"] = *source.TelegramID
		}
		if target.Name == "" && source.Name != "" {
			updates["name"] = source.Name
		}
		if err := tx.Model(&models.User{}).Where("id = ?", targetUserID).Updates(updates).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update target profile")
		}

		if err := tx.Delete(&models.User{}, sourceUserID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete source user")
		}
		return nil
	})
}
