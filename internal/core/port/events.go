package port

import (
	"context"

	"github.com/arklim/marketplace-auth/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishPasswordReset(ctx context.Context, event domain.PasswordResetEvent) error
}
