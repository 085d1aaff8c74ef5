package port

import (
	"context"

	"github.com/arklim/marketplace-auth/internal/core/domain"
)

// Message is a templated email addressed to a single recipient.
type Message struct {
	To       string
	Subject  string
	Template domain.EmailTemplate
	Data     map[string]any
}

// Notifier delivers outbound email.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// OTPMetrics records OTP lifecycle outcomes.
type OTPMetrics interface {
	OTPIssued(template domain.EmailTemplate)
	OTPBlocked(reason string)
	OTPVerified(result string)
}
