package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestDetachedWithRequestIDKeepsIDOnly(t *testing.T) {
	parent, cancel := context.WithTimeout(WithRequestID(context.Background(), "req-1"), time.Millisecond)
	cancel()

	detached := DetachedWithRequestID(parent)
	if detached.Err() != nil {
		t.Fatalf("expected detached context to outlive its parent")
	}
	if got := RequestIDFromContext(detached); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := RequestIDFromContext(DetachedWithRequestID(context.Background())); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}
