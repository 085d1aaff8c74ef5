package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role distinguishes the two account kinds served by the auth flows.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleSeller
)

const (
	userAccessCookie    = "access_token"
	userRefreshCookie   = "refresh_token"
	sellerAccessCookie  = "seller-access-token"
	sellerRefreshCookie = "seller-refresh-token"
)

// ParseRole converts the wire representation of a role.
func ParseRole(raw string) (Role, error) {
	switch strings.TrimSpace(raw) {
	case "user":
		return RoleUser, nil
	case "seller":
		return RoleSeller, nil
	default:
		return 0, fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleSeller:
		return "seller"
	default:
		return "unknown"
	}
}

// Label is the capitalised form used in user-facing messages.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleSeller:
		return "Seller"
	default:
		return "Account"
	}
}

// MarshalText encodes the role as "user" or "seller".
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes "user" or "seller".
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Other returns the opposite account kind.
func (r Role) Other() Role {
	switch r {
	case RoleUser:
		return RoleSeller
	case RoleSeller:
		return RoleUser
	default:
		return 0
	}
}

// AccessCookie is the cookie name holding the access token for this role.
func (r Role) AccessCookie() string {
	switch r {
	case RoleUser:
		return userAccessCookie
	case RoleSeller:
		return sellerAccessCookie
	default:
		return ""
	}
}

// RefreshCookie is the cookie name holding the refresh token for this role.
func (r Role) RefreshCookie() string {
	switch r {
	case RoleUser:
		return userRefreshCookie
	case RoleSeller:
		return sellerRefreshCookie
	default:
		return ""
	}
}

// Account is a persisted user or seller. Seller is populated only for RoleSeller.
type Account struct {
	ID           string
	Role         Role
	Name         string
	Email        string
	PasswordHash string
	Seller       *SellerProfile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SellerProfile holds the seller-only columns.
type SellerProfile struct {
	PhoneNumber string
	Country     string
	StripeID    *string
	Shop        *Shop
}

// Shop is the storefront linked to a seller.
type Shop struct {
	ID           string
	SellerID     string
	Name         string
	Bio          string
	Address      string
	OpeningHours string
	Website      *string
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicAccount is the subset of account fields safe to return to clients.
type PublicAccount struct {
	ID    string
	Email string
	Name  string
}

// Public strips credentials and role-specific details.
func (a Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Email: a.Email, Name: a.Name}
}

// Sanitized returns a copy without the password hash.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}
