package usecase

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failure for transport mapping.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindRateLimit  ErrorKind = "rate_limit"
	KindDatabase   ErrorKind = "database"
)

var (
	// ErrValidation matches any validation failure via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrAuth matches authentication failures.
	ErrAuth = errors.New("authentication failed")
	// ErrForbidden matches authorization failures.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches lookups of absent accounts or resources.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited matches lockouts, cooldowns and spam limits.
	ErrRateLimited = errors.New("rate limited")
	// ErrDatabase matches failures of a backing store.
	ErrDatabase = errors.New("storage failure")

	// ErrOTPInvalid indicates a submitted code did not match.
	ErrOTPInvalid = errors.New("otp invalid")
	// ErrOTPExpired indicates no live code exists for the email.
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPLocked indicates verification is locked after repeated failures.
	ErrOTPLocked = errors.New("otp locked")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation: ErrValidation,
	KindAuth:       ErrAuth,
	KindForbidden:  ErrForbidden,
	KindNotFound:   ErrNotFound,
	KindRateLimit:  ErrRateLimited,
	KindDatabase:   ErrDatabase,
}

// Error is the typed failure returned by every service operation.
// Message is safe to show to clients; Err carries the underlying cause.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel so callers can use errors.Is(err, ErrRateLimited).
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// AsError extracts the typed error from err's chain.
func AsError(err error) (*Error, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

func validationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func validationErrorWrap(message string, cause error) error {
	return &Error{Kind: KindValidation, Message: message, Err: cause}
}

func authError(message string) error {
	return &Error{Kind: KindAuth, Message: message}
}

func authErrorWrap(message string, cause error) error {
	return &Error{Kind: KindAuth, Message: message, Err: cause}
}

func forbiddenError(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func notFoundError(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func rateLimitError(message string, retryAfter time.Duration, cause error) error {
	return &Error{Kind: KindRateLimit, Message: message, RetryAfter: retryAfter, Err: cause}
}

func databaseError(op string, cause error) error {
	return &Error{Kind: KindDatabase, Message: "Something went wrong, please try again later", Err: fmt.Errorf("%s: %w", op, cause)}
}
