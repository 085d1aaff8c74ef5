package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/repository"
)

const (
	usersTable   = "users"
	sellersTable = "sellers"
	shopsTable   = "shops"
)

var (
	userColumns = []string{"id", "name", "email", "password", "created_at", "updated_at"}

	sellerColumns = []string{
		"sl.id", "sl.name", "sl.email", "sl.password", "sl.phone_number", "sl.country", "sl.stripe_id",
		"sl.created_at", "sl.updated_at",
		"sh.id", "sh.name", "sh.bio", "sh.address", "sh.opening_hours", "sh.website", "sh.category",
		"sh.created_at", "sh.updated_at",
	}
)

// AccountRepository stores users and sellers in their own tables. Sellers are
// loaded together with their shop.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

var _ port.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{exec: tx, builder: r.builder, now: r.now}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error) {
	switch role {
	case domain.RoleUser:
		return r.findUser(ctx, squirrel.Eq{"email": email})
	case domain.RoleSeller:
		return r.findSeller(ctx, squirrel.Eq{"sl.email": email})
	default:
		return nil, fmt.Errorf("find account: unknown role %d", uint8(role))
	}
}

func (r *AccountRepository) FindByID(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	switch role {
	case domain.RoleUser:
		return r.findUser(ctx, squirrel.Eq{"id": id})
	case domain.RoleSeller:
		return r.findSeller(ctx, squirrel.Eq{"sl.id": id})
	default:
		return nil, fmt.Errorf("find account: unknown role %d", uint8(role))
	}
}

// Create inserts the account into the table for its role. A duplicate email
// yields repository.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var query squirrel.InsertBuilder
	switch account.Role {
	case domain.RoleUser:
		query = r.builder.Insert(usersTable).
			Columns(userColumns...).
			Values(account.ID, account.Name, account.Email, account.PasswordHash, account.CreatedAt, account.UpdatedAt)
	case domain.RoleSeller:
		profile := account.Seller
		if profile == nil {
			return fmt.Errorf("insert seller: missing seller profile")
		}
		query = r.builder.Insert(sellersTable).
			Columns("id", "name", "email", "password", "phone_number", "country", "stripe_id", "created_at", "updated_at").
			Values(account.ID, account.Name, account.Email, account.PasswordHash, profile.PhoneNumber, profile.Country, profile.StripeID, account.CreatedAt, account.UpdatedAt)
	default:
		return fmt.Errorf("insert account: unknown role %d", uint8(account.Role))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s sql: %w", account.Role, err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert %s: %w", account.Role, err)
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, role domain.Role, email, passwordHash string) error {
	var table string
	switch role {
	case domain.RoleUser:
		table = usersTable
	case domain.RoleSeller:
		table = sellersTable
	default:
		return fmt.Errorf("update password: unknown role %d", uint8(role))
	}

	stmt, args, err := r.builder.Update(table).
		Set("password", passwordHash).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update %s password: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) findUser(ctx context.Context, where squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(userColumns...).From(usersTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	account := domain.Account{Role: domain.RoleUser}
	err = r.exec.QueryRow(ctx, stmt, args...).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) findSeller(ctx context.Context, where squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(sellerColumns...).
		From(sellersTable + " sl").
		LeftJoin(shopsTable + " sh ON sh.seller_id = sl.id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select seller sql: %w", err)
	}

	var (
		account = domain.Account{Role: domain.RoleSeller}
		profile domain.SellerProfile

		shopID, shopName, shopBio, shopAddress, shopHours, shopCategory *string
		shopWebsite                                                    *string
		shopCreated, shopUpdated                                       *time.Time
	)
	err = r.exec.QueryRow(ctx, stmt, args...).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&profile.PhoneNumber,
		&profile.Country,
		&profile.StripeID,
		&account.CreatedAt,
		&account.UpdatedAt,
		&shopID,
		&shopName,
		&shopBio,
		&shopAddress,
		&shopHours,
		&shopWebsite,
		&shopCategory,
		&shopCreated,
		&shopUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select seller: %w", err)
	}

	if shopID != nil {
		profile.Shop = &domain.Shop{
			ID:           *shopID,
			SellerID:     account.ID,
			Name:         deref(shopName),
			Bio:          deref(shopBio),
			Address:      deref(shopAddress),
			OpeningHours: deref(shopHours),
			Website:      shopWebsite,
			Category:     deref(shopCategory),
		}
		if shopCreated != nil {
			profile.Shop.CreatedAt = *shopCreated
		}
		if shopUpdated != nil {
			profile.Shop.UpdatedAt = *shopUpdated
		}
	}
	account.Seller = &profile
	return &account, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
