package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/logger"
	"github.com/arklim/marketplace-auth/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	activationSubject     = "Verify Your Email"
	forgotPasswordSubject = "Reset Your Password"
)

// RegisterInput starts a registration. PhoneNumber and Country are required for sellers.
type RegisterInput struct {
	Role        domain.Role
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Country     string
}

// VerifyRegistrationInput completes a registration with the emailed code.
type VerifyRegistrationInput struct {
	Role        domain.Role
	Name        string
	Email       string
	Password    string
	OTP         string
	PhoneNumber string
	Country     string
}

type LoginInput struct {
	Role     domain.Role
	Email    string
	Password string
}

// RefreshInput carries every place a refresh token may arrive from.
type RefreshInput struct {
	SellerRefreshToken string
	UserRefreshToken   string
	BearerToken        string
}

type ResetPasswordInput struct {
	Role        domain.Role
	Email       string
	NewPassword string
	Ticket      string
}

// Session is the outcome of a login: tokens scoped to Role plus the cookie
// names of the other role that must be cleared.
type Session struct {
	Role         domain.Role
	AccessToken  string
	RefreshToken string
	Clear        []string
	Account      domain.PublicAccount
}

// RefreshResult is a freshly issued access token for Role.
type RefreshResult struct {
	Role        domain.Role
	AccessToken string
}

// AuthService runs the registration, login, refresh and password reset flows
// for users and sellers.
type AuthService struct {
	accounts           port.AccountRepository
	otp                *OTPManager
	hasher             port.PasswordHasher
	tokens             port.TokenIssuer
	events             port.EventPublisher
	requireResetTicket bool
	now                func() time.Time
	logger             *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	accounts port.AccountRepository,
	otp *OTPManager,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts:           accounts,
		otp:                otp,
		hasher:             hasher,
		tokens:             tokens,
		requireResetTicket: true,
		now:                func() time.Time { return time.Now().UTC() },
		logger:             log,
	}
}

// WithEventPublisher configures the domain event sink.
func (s *AuthService) WithEventPublisher(events port.EventPublisher) *AuthService {
	s.events = events
	return s
}

// WithResetTicketRequired toggles whether ResetPassword demands the ticket
// minted by VerifyForgotPasswordOtp.
func (s *AuthService) WithResetTicketRequired(required bool) *AuthService {
	s.requireResetTicket = required
	return s
}

// WithClock overrides the time source used for event timestamps.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register validates the request and emails an activation code. No account is created.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateRegistration(in.Role, in.Name, in.Email, in.Password, in.PhoneNumber, in.Country); err != nil {
		return err
	}

	if err := s.ensureEmailFree(ctx, in.Role, in.Email); err != nil {
		return err
	}

	if err := s.otp.CheckRestrictions(ctx, in.Email); err != nil {
		return err
	}
	if err := s.otp.TrackRequest(ctx, in.Email); err != nil {
		return err
	}

	if err := s.otp.Issue(ctx, OTPRequest{
		Email:    in.Email,
		Name:     in.Name,
		Subject:  activationSubject,
		Template: domain.ActivationTemplate(in.Role),
	}); err != nil {
		return err
	}

	s.logger.Info("registration otp issued",
		zap.String("role", in.Role.String()),
		zap.String("email", logger.MaskEmail(in.Email)),
	)
	return nil
}

// VerifyRegistration checks the code and creates the account.
func (s *AuthService) VerifyRegistration(ctx context.Context, in VerifyRegistrationInput) (domain.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if in.OTP == "" {
		return domain.Account{}, validationError("All fields are required!")
	}
	if err := validateRegistration(in.Role, in.Name, in.Email, in.Password, in.PhoneNumber, in.Country); err != nil {
		return domain.Account{}, err
	}

	if err := s.ensureEmailFree(ctx, in.Role, in.Email); err != nil {
		return domain.Account{}, err
	}

	if err := s.otp.Verify(ctx, in.Email, in.OTP); err != nil {
		return domain.Account{}, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := domain.Account{
		ID:           uuid.NewString(),
		Role:         in.Role,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch in.Role {
	case domain.RoleSeller:
		account.Seller = &domain.SellerProfile{
			PhoneNumber: strings.TrimSpace(in.PhoneNumber),
			Country:     strings.TrimSpace(in.Country),
		}
	case domain.RoleUser:
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Account{}, alreadyExists(in.Role)
		}
		return domain.Account{}, databaseError("create account", err)
	}

	s.publishRegistered(ctx, account)
	s.logger.Info("account registered",
		zap.String("role", in.Role.String()),
		zap.String("account_id", account.ID),
	)
	return account.Sanitized(), nil
}

// Login checks credentials and issues a token pair scoped to the role.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	if !in.Role.Valid() {
		return Session{}, validationError("Invalid role!")
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return Session{}, validationError("Email and password are required!")
	}

	account, err := s.accounts.FindByEmail(ctx, in.Role, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, validationError(fmt.Sprintf("%s does not exist!", in.Role.Label()))
	}
	if err != nil {
		return Session{}, databaseError("find account", err)
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("login rejected",
			zap.String("role", in.Role.String()),
			zap.String("email", logger.MaskEmail(in.Email)),
		)
		return Session{}, authError("Invalid password!")
	}

	access, err := s.tokens.IssueAccessToken(account.ID, in.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(account.ID, in.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}

	other := in.Role.Other()
	return Session{
		Role:         in.Role,
		AccessToken:  access,
		RefreshToken: refresh,
		Clear:        []string{other.AccessCookie(), other.RefreshCookie()},
		Account:      account.Public(),
	}, nil
}

// Refresh issues a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, in RefreshInput) (RefreshResult, error) {
	token := firstNonEmpty(in.SellerRefreshToken, in.UserRefreshToken, in.BearerToken)
	if token == "" {
		return RefreshResult{}, validationError("Unauthorized! No refresh token.")
	}

	claims, err := s.tokens.VerifyRefreshToken(token)
	if err != nil {
		if errors.Is(err, port.ErrTokenExpired) {
			return RefreshResult{}, authErrorWrap("Forbidden! Refresh token expired.", err)
		}
		return RefreshResult{}, authErrorWrap("Forbidden! Invalid refresh token.", err)
	}

	if _, err := s.lookupByID(ctx, claims); err != nil {
		return RefreshResult{}, err
	}

	access, err := s.tokens.IssueAccessToken(claims.ID, claims.Role)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
	}
	return RefreshResult{Role: claims.Role, AccessToken: access}, nil
}

// Authenticate resolves an access token to its account. When roles are given
// the token's role must be one of them.
func (s *AuthService) Authenticate(ctx context.Context, token string, roles ...domain.Role) (domain.Account, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Account{}, authError("Unauthorized! Token missing.")
	}

	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, port.ErrTokenExpired) {
			return domain.Account{}, authErrorWrap("Unauthorized! Token expired.", err)
		}
		return domain.Account{}, authErrorWrap("Unauthorized! Invalid token.", err)
	}

	if len(roles) > 0 && !containsRole(roles, claims.Role) {
		return domain.Account{}, forbiddenError(fmt.Sprintf("Access denied for role %s!", claims.Role))
	}

	account, err := s.lookupByID(ctx, claims)
	if err != nil {
		return domain.Account{}, err
	}
	return account.Sanitized(), nil
}

// ForgotPassword emails a reset code to an existing account.
func (s *AuthService) ForgotPassword(ctx context.Context, role domain.Role, email string) error {
	if !role.Valid() {
		return validationError("Invalid role!")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return validationError("Email is required!")
	}

	account, err := s.accounts.FindByEmail(ctx, role, email)
	if errors.Is(err, repository.ErrNotFound) {
		return validationError(fmt.Sprintf("%s not found!", role.Label()))
	}
	if err != nil {
		return databaseError("find account", err)
	}

	if err := s.otp.CheckRestrictions(ctx, email); err != nil {
		return err
	}
	if err := s.otp.TrackRequest(ctx, email); err != nil {
		return err
	}

	return s.otp.Issue(ctx, OTPRequest{
		Email:    email,
		Name:     account.Name,
		Subject:  forgotPasswordSubject,
		Template: domain.ForgotPasswordTemplate(role),
	})
}

// VerifyForgotPasswordOtp checks the reset code and returns a ticket that
// ResetPassword must present.
func (s *AuthService) VerifyForgotPasswordOtp(ctx context.Context, email, code string) (string, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", validationError("Email and OTP are required!")
	}

	if err := s.otp.Verify(ctx, email, code); err != nil {
		return "", err
	}
	return s.otp.MintResetTicket(ctx, email)
}

// ResetPassword replaces the password of an existing account.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if !in.Role.Valid() {
		return validationError("Invalid role!")
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.NewPassword == "" {
		return validationError("Email and new password are required!")
	}

	account, err := s.accounts.FindByEmail(ctx, in.Role, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return validationError(fmt.Sprintf("%s not found!", in.Role.Label()))
	}
	if err != nil {
		return databaseError("find account", err)
	}

	if s.requireResetTicket {
		if err := s.otp.CheckResetTicket(ctx, in.Email, in.Ticket); err != nil {
			return err
		}
	}

	same, err := s.hasher.Verify(in.NewPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if same {
		return validationError("New password cannot be the same as the old password")
	}

	digest, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, in.Role, in.Email, digest); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return validationError(fmt.Sprintf("%s not found!", in.Role.Label()))
		}
		return databaseError("update password", err)
	}

	if s.requireResetTicket {
		if err := s.otp.ClearResetTicket(ctx, in.Email); err != nil {
			s.logger.Warn("reset ticket not cleared", zap.String("email", logger.MaskEmail(in.Email)), zap.Error(err))
		}
	}

	s.publishPasswordReset(ctx, *account)
	s.logger.Info("password reset", zap.String("role", in.Role.String()), zap.String("account_id", account.ID))
	return nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, role domain.Role, email string) error {
	_, err := s.accounts.FindByEmail(ctx, role, email)
	switch {
	case err == nil:
		return alreadyExists(role)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return databaseError("find account", err)
	}
}

func (s *AuthService) lookupByID(ctx context.Context, claims port.TokenClaims) (domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, claims.Role, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, authError("Forbidden! User/Seller not found")
	}
	if err != nil {
		return domain.Account{}, databaseError("find account", err)
	}
	return *account, nil
}

func (s *AuthService) publishRegistered(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Role:         account.Role,
		Email:        account.Email,
		Name:         account.Name,
		RegisteredAt: account.CreatedAt,
	}
	if account.Seller != nil {
		event.Country = account.Seller.Country
	}
	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *AuthService) publishPasswordReset(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.PasswordResetEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Role:      account.Role,
		Email:     account.Email,
		ResetAt:   s.now(),
	}
	if err := s.events.PublishPasswordReset(ctx, event); err != nil {
		s.logger.Warn("publish password reset failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func validateRegistration(role domain.Role, name, email, password, phone, country string) error {
	switch role {
	case domain.RoleUser:
		if name == "" || email == "" || password == "" {
			return validationError("Missing required fields!")
		}
	case domain.RoleSeller:
		if name == "" || email == "" || password == "" || strings.TrimSpace(phone) == "" || strings.TrimSpace(country) == "" {
			return validationError("Missing required fields!")
		}
	default:
		return validationError("Invalid role!")
	}
	if !emailPattern.MatchString(email) {
		return validationError("Invalid email format!")
	}
	return nil
}

func alreadyExists(role domain.Role) error {
	return validationError(fmt.Sprintf("%s already exists with this email!", role.Label()))
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
