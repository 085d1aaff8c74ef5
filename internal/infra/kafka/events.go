package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	EventAccountRegistered = "account.registered"
	EventPasswordReset     = "account.password_reset"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id"`
	Role      string            `json:"role"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, role domain.Role, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		AccountID: accountID,
		Role:      role.String(),
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("schema_version"), Value: []byte(schemaVersion)},
		},
	}

	select {
	case p.producer.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes account.registered events keyed by account id.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string    `json:"account_id"`
		Role         string    `json:"role"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		Country      string    `json:"country,omitempty"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		AccountID:    event.AccountID,
		Role:         event.Role.String(),
		Email:        event.Email,
		Name:         event.Name,
		Country:      event.Country,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventAccountRegistered, event.AccountID, event.Role, event.RegisteredAt, payload)
}

// PublishPasswordReset publishes account.password_reset events.
func (p *EventPublisher) PublishPasswordReset(ctx context.Context, event domain.PasswordResetEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Role      string    `json:"role"`
		Email     string    `json:"email"`
		ResetAt   time.Time `json:"reset_at"`
	}{
		AccountID: event.AccountID,
		Role:      event.Role.String(),
		Email:     event.Email,
		ResetAt:   event.ResetAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventPasswordReset, event.AccountID, event.Role, event.ResetAt, payload)
}
