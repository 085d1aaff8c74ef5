package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/repository"
)

// CreateShopInput carries the storefront fields submitted during seller onboarding.
type CreateShopInput struct {
	SellerID     string
	Name         string
	Bio          string
	Address      string
	OpeningHours string
	Website      string
	Category     string
}

// ShopService creates the storefront linked to a seller.
type ShopService struct {
	accounts port.AccountRepository
	shops    port.ShopRepository
	now      func() time.Time
	logger   *zap.Logger
}

func NewShopService(accounts port.AccountRepository, shops port.ShopRepository, log *zap.Logger) *ShopService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShopService{
		accounts: accounts,
		shops:    shops,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log,
	}
}

// WithClock overrides the time source used for timestamps.
func (s *ShopService) WithClock(clock func() time.Time) *ShopService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// CreateShop validates input and persists a shop for an existing seller.
// A seller owns at most one shop.
func (s *ShopService) CreateShop(ctx context.Context, in CreateShopInput) (domain.Shop, error) {
	fields := []*string{&in.SellerID, &in.Name, &in.Bio, &in.Address, &in.OpeningHours, &in.Website, &in.Category}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
		if *f == "" {
			return domain.Shop{}, validationError("All fields are required!")
		}
	}

	if _, err := s.accounts.FindByID(ctx, domain.RoleSeller, in.SellerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Shop{}, notFoundError("Seller not found!")
		}
		return domain.Shop{}, databaseError("find seller", err)
	}

	now := s.now()
	website := in.Website
	shop := domain.Shop{
		ID:           uuid.NewString(),
		SellerID:     in.SellerID,
		Name:         in.Name,
		Bio:          in.Bio,
		Address:      in.Address,
		OpeningHours: in.OpeningHours,
		Website:      &website,
		Category:     in.Category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.shops.Create(ctx, shop); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Shop{}, validationError("Seller already has a shop!")
		}
		return domain.Shop{}, databaseError("create shop", err)
	}

	s.logger.Info("shop created", zap.String("shop_id", shop.ID), zap.String("seller_id", shop.SellerID))
	return shop, nil
}
