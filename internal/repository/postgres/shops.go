package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/repository"
)

// ShopRepository persists seller storefronts.
type ShopRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.ShopRepository = (*ShopRepository)(nil)

func NewShopRepository(exec pgExecutor) *ShopRepository {
	return &ShopRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts shop. The unique seller_id constraint surfaces as
// repository.ErrConflict and a dangling seller as repository.ErrNotFound.
func (r *ShopRepository) Create(ctx context.Context, shop domain.Shop) error {
	stmt, args, err := r.builder.Insert(shopsTable).
		Columns("id", "name", "bio", "address", "opening_hours", "website", "category", "seller_id", "created_at", "updated_at").
		Values(shop.ID, shop.Name, shop.Bio, shop.Address, shop.OpeningHours, shop.Website, shop.Category, shop.SellerID, shop.CreatedAt, shop.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert shop sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		switch pgErrorCode(err) {
		case uniqueViolation:
			return repository.ErrConflict
		case foreignKeyViolation:
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}
