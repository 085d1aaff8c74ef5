package mail

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
)

type captureSender struct {
	mu       sync.Mutex
	messages []*gomail.Message
	err      error
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m...)
	return s.err
}

type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	sent    []port.Message
	err     error
}

func (n *blockingNotifier) Send(ctx context.Context, msg port.Message) error {
	select {
	case <-n.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func mustRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRenderer_Render_AllTemplates(t *testing.T) {
	r := mustRenderer(t)

	templates := []domain.EmailTemplate{
		domain.ActivationTemplate(domain.RoleUser),
		domain.ActivationTemplate(domain.RoleSeller),
		domain.ForgotPasswordTemplate(domain.RoleUser),
		domain.ForgotPasswordTemplate(domain.RoleSeller),
	}
	for _, name := range templates {
		body, err := r.Render(name, "Verify Your Email", map[string]any{
			"Name":          "Ada",
			"OTP":           "4821",
			"ExpiryMinutes": 5,
		})
		if err != nil {
			t.Fatalf("Render(%s): %v", name, err)
		}
		if !strings.Contains(body, "4821") {
			t.Fatalf("expected %s to contain the code, got %q", name, body)
		}
		if !strings.Contains(body, "5 minutes") {
			t.Fatalf("expected %s to mention expiry", name)
		}
	}
}

func TestRenderer_Render_EscapesName(t *testing.T) {
	r := mustRenderer(t)

	body, err := r.Render(domain.ActivationTemplate(domain.RoleUser), "Verify Your Email", map[string]any{
		"Name": "<script>alert(1)</script>",
		"OTP":  "1234",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected name to be escaped, got %q", body)
	}
}

func TestRenderer_Render_UnknownTemplate(t *testing.T) {
	r := mustRenderer(t)

	if _, err := r.Render("missing-template", "x", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestSMTPNotifier_Send(t *testing.T) {
	capture := &captureSender{}
	n := &SMTPNotifier{dialer: capture, from: "no-reply@marketplace.local", renderer: mustRenderer(t)}

	err := n.Send(context.Background(), port.Message{
		To:       "ada@example.com",
		Subject:  "Verify Your Email",
		Template: domain.ActivationTemplate(domain.RoleUser),
		Data:     map[string]any{"Name": "Ada", "OTP": "4821", "ExpiryMinutes": 5},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(capture.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(capture.messages))
	}
	m := capture.messages[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "ada@example.com" {
		t.Fatalf("unexpected To header: %v", got)
	}
	if got := m.GetHeader("From"); len(got) != 1 || got[0] != "no-reply@marketplace.local" {
		t.Fatalf("unexpected From header: %v", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "Verify Your Email" {
		t.Fatalf("unexpected Subject header: %v", got)
	}
}

func TestSMTPNotifier_Send_DialError(t *testing.T) {
	capture := &captureSender{err: errors.New("connection refused")}
	n := &SMTPNotifier{dialer: capture, from: "no-reply@marketplace.local", renderer: mustRenderer(t)}

	err := n.Send(context.Background(), port.Message{
		To:       "ada@example.com",
		Subject:  "Reset Your Password",
		Template: domain.ForgotPasswordTemplate(domain.RoleSeller),
		Data:     map[string]any{"Name": "Ada", "OTP": "4821"},
	})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped dial error, got %v", err)
	}
}

func TestAsyncNotifier_Send_DoesNotBlock(t *testing.T) {
	next := &blockingNotifier{release: make(chan struct{})}
	n := NewAsyncNotifier(next, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := n.Send(ctx, port.Message{To: "ada@example.com"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// request context ending must not abort delivery
	cancel()
	close(next.release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	if err := n.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(next.sent) != 1 {
		t.Fatalf("expected delivery after release, got %d", len(next.sent))
	}
}

func TestAsyncNotifier_Send_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	next := &blockingNotifier{release: make(chan struct{}), err: errors.New("smtp down")}
	close(next.release)
	n := NewAsyncNotifier(next, time.Second, zap.New(core))

	if err := n.Send(context.Background(), port.Message{To: "ada@example.com", Template: "user-activation-mail"}); err != nil {
		t.Fatalf("Send returned delivery error: %v", err)
	}
	if err := n.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	entries := logs.FilterMessage("email delivery failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log, got %d", len(entries))
	}
	if to := entries[0].ContextMap()["to"]; to == "ada@example.com" {
		t.Fatalf("expected masked recipient, got %v", to)
	}
}

func TestLogNotifier_Send_OmitsCode(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	err := n.Send(context.Background(), port.Message{
		To:       "ada@example.com",
		Subject:  "Verify Your Email",
		Template: domain.ActivationTemplate(domain.RoleUser),
		Data:     map[string]any{"OTP": "4821"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one log entry, got %d", logs.Len())
	}
	for _, v := range logs.All()[0].ContextMap() {
		if s, ok := v.(string); ok && strings.Contains(s, "4821") {
			t.Fatalf("code leaked into log fields")
		}
	}
}
