package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/config"
	"github.com/arklim/marketplace-auth/internal/infra/logger"
	"github.com/arklim/marketplace-auth/internal/infra/security"
	"github.com/arklim/marketplace-auth/internal/repository"
)

const (
	BlockReasonLock     = "account_lock"
	BlockReasonSpam     = "spam_lock"
	BlockReasonCooldown = "cooldown"
	BlockReasonTooMany  = "too_many_requests"

	VerifyResultSuccess = "success"
	VerifyResultInvalid = "invalid"
	VerifyResultExpired = "expired"
	VerifyResultLocked  = "locked"
)

// OTPPolicy holds the limits and lifetimes of the OTP lifecycle.
type OTPPolicy struct {
	CodeTTL           time.Duration
	CooldownTTL       time.Duration
	RequestWindow     time.Duration
	MaxRequests       int
	SpamLockTTL       time.Duration
	MaxFailedAttempts int
	AttemptsTTL       time.Duration
	LockTTL           time.Duration
	ResetTicketTTL    time.Duration
}

// DefaultOTPPolicy returns the production limits.
func DefaultOTPPolicy() OTPPolicy {
	return OTPPolicy{
		CodeTTL:           5 * time.Minute,
		CooldownTTL:       time.Minute,
		RequestWindow:     time.Hour,
		MaxRequests:       2,
		SpamLockTTL:       time.Hour,
		MaxFailedAttempts: 2,
		AttemptsTTL:       5 * time.Minute,
		LockTTL:           30 * time.Minute,
		ResetTicketTTL:    10 * time.Minute,
	}
}

// OTPPolicyFromConfig overlays configured values on the defaults.
func OTPPolicyFromConfig(cfg config.OTPSettings) OTPPolicy {
	policy := DefaultOTPPolicy()
	setDuration(&policy.CodeTTL, cfg.CodeTTL)
	setDuration(&policy.CooldownTTL, cfg.CooldownTTL)
	setDuration(&policy.RequestWindow, cfg.RequestWindow)
	setDuration(&policy.SpamLockTTL, cfg.SpamLockTTL)
	setDuration(&policy.AttemptsTTL, cfg.AttemptsTTL)
	setDuration(&policy.LockTTL, cfg.LockTTL)
	setDuration(&policy.ResetTicketTTL, cfg.ResetTicketTTL)
	if cfg.MaxRequests > 0 {
		policy.MaxRequests = cfg.MaxRequests
	}
	if cfg.MaxFailedAttempts > 0 {
		policy.MaxFailedAttempts = cfg.MaxFailedAttempts
	}
	return policy
}

func setDuration(dst *time.Duration, value time.Duration) {
	if value > 0 {
		*dst = value
	}
}

// OTPRequest describes an outbound code delivery.
type OTPRequest struct {
	Email    string
	Name     string
	Subject  string
	Template domain.EmailTemplate
}

// OTPManager issues and verifies one-time codes, enforcing cooldowns, request
// caps and failed-attempt lockouts through TTL'd keys in the ephemeral store.
type OTPManager struct {
	store    port.EphemeralStore
	notifier port.Notifier
	keys     domain.OTPKeys
	policy   OTPPolicy
	generate func() (string, error)
	metrics  port.OTPMetrics
	logger   *zap.Logger
}

// NewOTPManager constructs an OTP manager.
func NewOTPManager(store port.EphemeralStore, notifier port.Notifier, keys domain.OTPKeys, policy OTPPolicy, log *zap.Logger) *OTPManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &OTPManager{
		store:    store,
		notifier: notifier,
		keys:     keys,
		policy:   policy,
		generate: security.GenerateOTPCode,
		logger:   log,
	}
}

// WithCodeGenerator replaces the random code source.
func (m *OTPManager) WithCodeGenerator(generate func() (string, error)) *OTPManager {
	if generate != nil {
		m.generate = generate
	}
	return m
}

// WithMetrics records issuance, block and verification outcomes.
func (m *OTPManager) WithMetrics(metrics port.OTPMetrics) *OTPManager {
	m.metrics = metrics
	return m
}

// Policy exposes the active limits.
func (m *OTPManager) Policy() OTPPolicy {
	return m.policy
}

// CheckRestrictions fails when the email is locked, spam-locked or cooling down.
func (m *OTPManager) CheckRestrictions(ctx context.Context, email string) error {
	checks := []struct {
		key     string
		reason  string
		ttl     time.Duration
		message string
	}{
		{m.keys.Lock(email), BlockReasonLock, m.policy.LockTTL, "Account locked due to multiple failed attempts! Try again after %s."},
		{m.keys.SpamLock(email), BlockReasonSpam, m.policy.SpamLockTTL, "Too many OTP requests! Please wait %s before requesting again."},
		{m.keys.Cooldown(email), BlockReasonCooldown, m.policy.CooldownTTL, "Please wait %s before requesting a new OTP!"},
	}

	for _, check := range checks {
		remaining, found, err := m.store.TTL(ctx, check.key)
		if err != nil {
			return databaseError("check otp restriction", err)
		}
		if !found {
			continue
		}
		if remaining <= 0 {
			remaining = check.ttl
		}
		m.blocked(check.reason)
		return rateLimitError(fmt.Sprintf(check.message, humanizeDuration(remaining)), remaining, nil)
	}
	return nil
}

// TrackRequest counts an issuance request. Exceeding the cap within the window
// sets the spam lock and fails.
func (m *OTPManager) TrackRequest(ctx context.Context, email string) error {
	count, err := m.store.IncrWithTTL(ctx, m.keys.RequestCount(email), m.policy.RequestWindow)
	if err != nil {
		return databaseError("track otp request", err)
	}
	if count <= int64(m.policy.MaxRequests) {
		return nil
	}

	if err := m.store.Set(ctx, m.keys.SpamLock(email), "locked", m.policy.SpamLockTTL); err != nil {
		return databaseError("set otp spam lock", err)
	}
	m.blocked(BlockReasonTooMany)
	m.logger.Warn("otp spam lock applied", zap.String("email", logger.MaskEmail(email)), zap.Int64("requests", count))
	return rateLimitError(
		fmt.Sprintf("Too many OTP requests. Please wait %s before requesting again.", humanizeDuration(m.policy.SpamLockTTL)),
		m.policy.SpamLockTTL,
		nil,
	)
}

// Issue generates a fresh code, stores it with the cooldown and hands it to the
// notifier. Delivery failures are logged, never returned.
func (m *OTPManager) Issue(ctx context.Context, req OTPRequest) error {
	code, err := m.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	if err := m.store.Set(ctx, m.keys.Code(req.Email), code, m.policy.CodeTTL); err != nil {
		return databaseError("store otp", err)
	}
	if err := m.store.Set(ctx, m.keys.Cooldown(req.Email), "true", m.policy.CooldownTTL); err != nil {
		return databaseError("store otp cooldown", err)
	}

	msg := port.Message{
		To:       req.Email,
		Subject:  req.Subject,
		Template: req.Template,
		Data: map[string]any{
			"Name":          req.Name,
			"OTP":           code,
			"ExpiryMinutes": int(m.policy.CodeTTL / time.Minute),
		},
	}
	if err := m.notifier.Send(ctx, msg); err != nil {
		m.logger.Error("otp delivery failed",
			zap.String("email", logger.MaskEmail(req.Email)),
			zap.String("template", string(req.Template)),
			zap.Error(err),
		)
	}

	if m.metrics != nil {
		m.metrics.OTPIssued(req.Template)
	}
	return nil
}

// Verify consumes the live code for email when supplied matches it.
func (m *OTPManager) Verify(ctx context.Context, email, supplied string) error {
	remaining, locked, err := m.store.TTL(ctx, m.keys.Lock(email))
	if err != nil {
		return databaseError("check otp lock", err)
	}
	if locked {
		if remaining <= 0 {
			remaining = m.policy.LockTTL
		}
		m.verified(VerifyResultLocked)
		return rateLimitError(
			fmt.Sprintf("Account locked due to multiple failed attempts! Try again after %s.", humanizeDuration(remaining)),
			remaining,
			ErrOTPLocked,
		)
	}

	stored, err := m.store.Get(ctx, m.keys.Code(email))
	if errors.Is(err, repository.ErrNotFound) {
		m.verified(VerifyResultExpired)
		return validationErrorWrap("Invalid or expired OTP!", ErrOTPExpired)
	}
	if err != nil {
		return databaseError("load otp", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1 {
		if err := m.store.Delete(ctx, m.keys.Code(email), m.keys.Attempts(email)); err != nil {
			return databaseError("consume otp", err)
		}
		m.verified(VerifyResultSuccess)
		return nil
	}

	attempts, err := m.store.IncrWithTTL(ctx, m.keys.Attempts(email), m.policy.AttemptsTTL)
	if err != nil {
		return databaseError("count otp attempts", err)
	}

	if attempts > int64(m.policy.MaxFailedAttempts) {
		if err := m.store.Set(ctx, m.keys.Lock(email), "locked", m.policy.LockTTL); err != nil {
			return databaseError("set otp lock", err)
		}
		if err := m.store.Delete(ctx, m.keys.Code(email), m.keys.Attempts(email)); err != nil {
			return databaseError("discard otp", err)
		}
		m.verified(VerifyResultLocked)
		m.logger.Warn("otp verification locked", zap.String("email", logger.MaskEmail(email)))
		return rateLimitError(
			fmt.Sprintf("Too many failed attempts. Your account is locked for %s!", humanizeDuration(m.policy.LockTTL)),
			m.policy.LockTTL,
			ErrOTPLocked,
		)
	}

	left := int64(m.policy.MaxFailedAttempts) + 1 - attempts
	m.verified(VerifyResultInvalid)
	return validationErrorWrap(fmt.Sprintf("Incorrect OTP. %d attempts left.", left), ErrOTPInvalid)
}

// MintResetTicket stores a single-use reset ticket for email and returns it.
// Only the SHA-256 of the ticket is kept.
func (m *OTPManager) MintResetTicket(ctx context.Context, email string) (string, error) {
	ticket, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset ticket: %w", err)
	}
	if err := m.store.Set(ctx, m.keys.ResetTicket(email), security.HashToken(ticket), m.policy.ResetTicketTTL); err != nil {
		return "", databaseError("store reset ticket", err)
	}
	return ticket, nil
}

// CheckResetTicket fails unless ticket matches the live ticket for email.
func (m *OTPManager) CheckResetTicket(ctx context.Context, email, ticket string) error {
	if ticket == "" {
		return validationError("Reset ticket is required. Verify the OTP first!")
	}
	stored, err := m.store.Get(ctx, m.keys.ResetTicket(email))
	if errors.Is(err, repository.ErrNotFound) {
		return validationError("Reset session expired. Please request a new OTP!")
	}
	if err != nil {
		return databaseError("load reset ticket", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(security.HashToken(ticket))) != 1 {
		return validationError("Invalid reset ticket!")
	}
	return nil
}

// ClearResetTicket consumes the ticket for email.
func (m *OTPManager) ClearResetTicket(ctx context.Context, email string) error {
	if err := m.store.Delete(ctx, m.keys.ResetTicket(email)); err != nil {
		return databaseError("clear reset ticket", err)
	}
	return nil
}

func (m *OTPManager) blocked(reason string) {
	if m.metrics != nil {
		m.metrics.OTPBlocked(reason)
	}
}

func (m *OTPManager) verified(result string) {
	if m.metrics != nil {
		m.metrics.OTPVerified(result)
	}
}

// humanizeDuration renders d rounded up to whole minutes, or seconds below a minute.
func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(math.Ceil(d.Seconds()))
		if secs <= 1 {
			return "1 second"
		}
		return strconv.Itoa(secs) + " seconds"
	}
	mins := int(math.Ceil(d.Minutes()))
	if mins >= 60 && mins%60 == 0 {
		hours := mins / 60
		if hours == 1 {
			return "1 hour"
		}
		return strconv.Itoa(hours) + " hours"
	}
	if mins == 1 {
		return "1 minute"
	}
	return strconv.Itoa(mins) + " minutes"
}
