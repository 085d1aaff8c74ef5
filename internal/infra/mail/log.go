package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/logger"
)

// LogNotifier records outbound mail instead of sending it. Used when no SMTP host is configured.
type LogNotifier struct {
	logger *zap.Logger
}

var _ port.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg port.Message) error {
	logger.WithContext(ctx, n.logger).Info("email suppressed, smtp not configured",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
		zap.String("template", string(msg.Template)),
	)
	return nil
}
