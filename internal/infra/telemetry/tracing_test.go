package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/infra/config"
)

func TestNewTracerProvider_DisabledWithoutEndpoint(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetrySettings{ServiceName: "marketplace-auth"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	if tp != nil {
		t.Fatalf("expected nil provider without endpoint")
	}

	if tracer := tp.Tracer("test"); tracer == nil {
		t.Fatalf("expected global fallback tracer")
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush on nil provider: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown on nil provider: %v", err)
	}
}
