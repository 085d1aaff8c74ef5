package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/transport/http/middleware"
)

// ErrorResponse is the body of every non-throttling failure.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds an error body carrying the request's trace id.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Status:  "error",
		Message: message,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserRegistrationRequest starts or completes a user registration. OTP is
// only read on verification.
type UserRegistrationRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// SellerRegistrationRequest starts or completes a seller registration.
type SellerRegistrationRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Country     string `json:"country"`
	OTP         string `json:"otp"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyForgotPasswordRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest carries the ticket returned by the verify step.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	ResetToken  string `json:"resetToken"`
}

type CreateShopRequest struct {
	Name         string `json:"name"`
	Bio          string `json:"bio"`
	Address      string `json:"address"`
	OpeningHours string `json:"opening_hours"`
	Website      string `json:"website"`
	Category     string `json:"category"`
	SellerID     string `json:"sellerId"`
}

// AccountSummary is the public projection of an account.
type AccountSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newAccountSummary(p domain.PublicAccount) AccountSummary {
	return AccountSummary{ID: p.ID, Email: p.Email, Name: p.Name}
}

type UserLoginResponse struct {
	Message string         `json:"message"`
	User    AccountSummary `json:"user"`
}

type SellerLoginResponse struct {
	Message string         `json:"message"`
	Seller  AccountSummary `json:"seller"`
}

type RegisteredResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SellerRegisteredResponse struct {
	Message string       `json:"message"`
	Seller  SellerDetail `json:"seller"`
}

type VerifyForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// UserDetail is the authenticated user without credentials.
type UserDetail struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SellerDetail is the authenticated seller with the linked shop, if any.
type SellerDetail struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phone_number"`
	Country     string      `json:"country"`
	StripeID    *string     `json:"stripeId"`
	Shop        *ShopDetail `json:"shop"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type ShopDetail struct {
	ID           string    `json:"id"`
	SellerID     string    `json:"sellerId"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	Address      string    `json:"address"`
	OpeningHours string    `json:"opening_hours"`
	Website      *string   `json:"website"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type LoggedInUserResponse struct {
	Success bool       `json:"success"`
	User    UserDetail `json:"user"`
}

type LoggedInSellerResponse struct {
	Success bool         `json:"success"`
	Seller  SellerDetail `json:"seller"`
}

type ShopResponse struct {
	Success bool       `json:"success"`
	Shop    ShopDetail `json:"shop"`
}

func newUserDetail(a domain.Account) UserDetail {
	return UserDetail{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

func newSellerDetail(a domain.Account) SellerDetail {
	d := SellerDetail{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
	if a.Seller != nil {
		d.PhoneNumber = a.Seller.PhoneNumber
		d.Country = a.Seller.Country
		d.StripeID = a.Seller.StripeID
		if a.Seller.Shop != nil {
			shop := newShopDetail(*a.Seller.Shop)
			d.Shop = &shop
		}
	}
	return d
}

func newShopDetail(s domain.Shop) ShopDetail {
	return ShopDetail{
		ID:           s.ID,
		SellerID:     s.SellerID,
		Name:         s.Name,
		Bio:          s.Bio,
		Address:      s.Address,
		OpeningHours: s.OpeningHours,
		Website:      s.Website,
		Category:     s.Category,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports each dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
