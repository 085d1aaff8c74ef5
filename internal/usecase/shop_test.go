package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/repository"
)

type fakeShopRepo struct {
	bySeller map[string]domain.Shop
	err      error
}

func (r *fakeShopRepo) Create(_ context.Context, shop domain.Shop) error {
	if r.err != nil {
		return r.err
	}
	if _, exists := r.bySeller[shop.SellerID]; exists {
		return repository.ErrConflict
	}
	r.bySeller[shop.SellerID] = shop
	return nil
}

func validShopInput() CreateShopInput {
	return CreateShopInput{
		SellerID:     "seller-1",
		Name:         "Corner Store",
		Bio:          "Everything you need",
		Address:      "1 Main St",
		OpeningHours: "9-17",
		Website:      "https://corner.example",
		Category:     "grocery",
	}
}

func TestShopService_CreateShop(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.put(domain.Account{ID: "seller-1", Role: domain.RoleSeller, Email: "shop@x.com"})
	shops := &fakeShopRepo{bySeller: map[string]domain.Shop{}}
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := NewShopService(accounts, shops, nil).WithClock(func() time.Time { return fixed })

	shop, err := svc.CreateShop(context.Background(), validShopInput())
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	if shop.ID == "" || shop.SellerID != "seller-1" || !shop.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected shop %+v", shop)
	}
	if shop.Website == nil || *shop.Website != "https://corner.example" {
		t.Fatalf("expected website to be set, got %v", shop.Website)
	}

	_, err = svc.CreateShop(context.Background(), validShopInput())
	expectKind(t, err, KindValidation)
}

func TestShopService_CreateShop_Failures(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.put(domain.Account{ID: "user-1", Role: domain.RoleUser, Email: "ann@x.com"})
	shops := &fakeShopRepo{bySeller: map[string]domain.Shop{}}
	svc := NewShopService(accounts, shops, nil)

	in := validShopInput()
	in.Category = "  "
	_, err := svc.CreateShop(context.Background(), in)
	expectKind(t, err, KindValidation)

	// a user id is not a seller id
	in = validShopInput()
	in.SellerID = "user-1"
	_, err = svc.CreateShop(context.Background(), in)
	expectKind(t, err, KindNotFound)

	accounts.put(domain.Account{ID: "seller-1", Role: domain.RoleSeller, Email: "shop@x.com"})
	shops.err = errors.New("disk full")
	_, err = svc.CreateShop(context.Background(), validShopInput())
	expectKind(t, err, KindDatabase)
}
