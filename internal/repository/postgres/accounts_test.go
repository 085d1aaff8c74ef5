package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/repository"
)

var sellerRowColumns = []string{
	"id", "name", "email", "password", "phone_number", "country", "stripe_id", "created_at", "updated_at",
	"shop_id", "shop_name", "bio", "address", "opening_hours", "website", "category", "shop_created_at", "shop_updated_at",
}

func TestAccountRepository_FindUserByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "name", "email", "password", "created_at", "updated_at"}).
		AddRow("user-1", "Ann", "ann@x.com", "$2a$10$hash", createdAt, createdAt)

	mock.ExpectQuery(`SELECT id, name, email, password, created_at, updated_at FROM users WHERE email = \$1`).
		WithArgs("ann@x.com").
		WillReturnRows(rows)

	account, err := repo.FindByEmail(context.Background(), domain.RoleUser, "ann@x.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if account.ID != "user-1" || account.Role != domain.RoleUser || account.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected account %+v", account)
	}
	if account.Seller != nil {
		t.Fatal("users must not carry a seller profile")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_FindUserNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), domain.RoleUser, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_FindSellerWithShop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	website := "https://corner.example"

	rows := pgxmock.NewRows(sellerRowColumns).AddRow(
		"seller-1", "Shopkeeper", "shop@x.com", "$2a$10$hash", "+15551234567", "DE", nil, createdAt, createdAt,
		strPtr("shop-1"), strPtr("Corner"), strPtr("Bio"), strPtr("1 Main St"), strPtr("9-17"), &website, strPtr("grocery"), &createdAt, &createdAt,
	)

	mock.ExpectQuery(`FROM sellers sl LEFT JOIN shops sh ON sh.seller_id = sl.id WHERE sl.id = \$1`).
		WithArgs("seller-1").
		WillReturnRows(rows)

	account, err := repo.FindByID(context.Background(), domain.RoleSeller, "seller-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if account.Seller == nil || account.Seller.Country != "DE" || account.Seller.StripeID != nil {
		t.Fatalf("unexpected seller profile %+v", account.Seller)
	}
	shop := account.Seller.Shop
	if shop == nil || shop.ID != "shop-1" || shop.SellerID != "seller-1" || shop.Website == nil || *shop.Website != website {
		t.Fatalf("unexpected shop %+v", shop)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_FindSellerWithoutShop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(sellerRowColumns).AddRow(
		"seller-1", "Shopkeeper", "shop@x.com", "$2a$10$hash", "+15551234567", "DE", nil, createdAt, createdAt,
		nil, nil, nil, nil, nil, nil, nil, nil, nil,
	)

	mock.ExpectQuery(`FROM sellers sl LEFT JOIN shops sh ON sh.seller_id = sl.id WHERE sl.email = \$1`).
		WithArgs("shop@x.com").
		WillReturnRows(rows)

	account, err := repo.FindByEmail(context.Background(), domain.RoleSeller, "shop@x.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if account.Seller == nil || account.Seller.Shop != nil {
		t.Fatalf("expected seller without shop, got %+v", account.Seller)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_CreateSeller(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	account := domain.Account{
		ID:           "seller-1",
		Role:         domain.RoleSeller,
		Name:         "Shopkeeper",
		Email:        "shop@x.com",
		PasswordHash: "$2a$10$hash",
		Seller:       &domain.SellerProfile{PhoneNumber: "+15551234567", Country: "DE"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO sellers`).
		WithArgs("seller-1", "Shopkeeper", "shop@x.com", "$2a$10$hash", "+15551234567", "DE", account.Seller.StripeID, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_CreateDuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("user-1", "Ann", "ann@x.com", "hash", now, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), domain.Account{
		ID: "user-1", Role: domain.RoleUser, Name: "Ann", Email: "ann@x.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE sellers SET password = \$1, updated_at = \$2 WHERE email = \$3`).
		WithArgs("new-hash", pgxmock.AnyArg(), "shop@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password = \$1, updated_at = \$2 WHERE email = \$3`).
		WithArgs("new-hash", pgxmock.AnyArg(), "nobody@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdatePassword(context.Background(), domain.RoleSeller, "shop@x.com", "new-hash"); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}
	if err := repo.UpdatePassword(context.Background(), domain.RoleUser, "nobody@x.com", "new-hash"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UnknownRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)
	if _, err := repo.FindByEmail(context.Background(), domain.Role(0), "a@b.co"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func strPtr(s string) *string { return &s }
