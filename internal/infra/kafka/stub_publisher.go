package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/logger"
)

// StubPublisher logs events instead of sending them. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(ctx context.Context, eventType, accountID string, role domain.Role, at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	logger.WithContext(ctx, p.logger).Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.String("role", role.String()),
		zap.Time("timestamp", at.UTC()),
	)
}

func (p *StubPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	p.logEvent(ctx, EventAccountRegistered, event.AccountID, event.Role, event.RegisteredAt)
	return nil
}

func (p *StubPublisher) PublishPasswordReset(ctx context.Context, event domain.PasswordResetEvent) error {
	p.logEvent(ctx, EventPasswordReset, event.AccountID, event.Role, event.ResetAt)
	return nil
}
