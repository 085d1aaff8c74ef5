package port

import (
	"context"

	"github.com/arklim/marketplace-auth/internal/core/domain"
)

// AccountRepository exposes persistence behavior for users and sellers.
type AccountRepository interface {
	FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error)
	FindByID(ctx context.Context, role domain.Role, id string) (*domain.Account, error)
	Create(ctx context.Context, account domain.Account) error
	UpdatePassword(ctx context.Context, role domain.Role, email, passwordHash string) error
}

// ShopRepository persists seller storefronts.
type ShopRepository interface {
	Create(ctx context.Context, shop domain.Shop) error
}
