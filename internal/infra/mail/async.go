package mail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/logger"
)

const defaultSendTimeout = 15 * time.Second

// AsyncNotifier hands messages to the wrapped notifier on a background
// goroutine. Send never blocks on delivery and never reports its failure.
type AsyncNotifier struct {
	next    port.Notifier
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

var _ port.Notifier = (*AsyncNotifier)(nil)

func NewAsyncNotifier(next port.Notifier, timeout time.Duration, log *zap.Logger) *AsyncNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &AsyncNotifier{next: next, timeout: timeout, logger: log}
}

func (n *AsyncNotifier) Send(ctx context.Context, msg port.Message) error {
	// the request context ends with the response; delivery must outlive it
	sendCtx := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(sendCtx, n.timeout)
		defer cancel()

		if err := n.next.Send(ctx, msg); err != nil {
			logger.WithContext(ctx, n.logger).Error("email delivery failed",
				zap.String("to", logger.MaskEmail(msg.To)),
				zap.String("template", string(msg.Template)),
				zap.Error(err),
			)
			return
		}
		logger.WithContext(ctx, n.logger).Debug("email delivered",
			zap.String("to", logger.MaskEmail(msg.To)),
			zap.String("template", string(msg.Template)),
		)
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx ends.
func (n *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
