package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/config"
)

// sender is the subset of *gomail.Dialer used for delivery.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier renders templated messages and delivers them over SMTP.
type SMTPNotifier struct {
	dialer   sender
	from     string
	renderer *Renderer
}

var _ port.Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier builds a notifier from SMTP settings.
func NewSMTPNotifier(cfg config.SMTPSettings, renderer *Renderer) *SMTPNotifier {
	return &SMTPNotifier{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		renderer: renderer,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, msg port.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := n.renderer.Render(msg.Template, msg.Subject, msg.Data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s email: %w", msg.Template, err)
	}
	return nil
}
