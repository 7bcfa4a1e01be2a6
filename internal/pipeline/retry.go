package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"studyviz-backend/internal/llm"
	"studyviz-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

type retryingLLM struct {
	base       llm.Client
	requestID  string
	documentID string
	delay      time.Duration
}

func newRetryingLLM(base llm.Client, documentID, requestID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{
		base:       base,
		requestID:  requestID,
		documentID: documentID,
		delay:      llmRetryBaseDelay,
	}
}

func (r retryingLLM) Generate(ctx context.Context, input llm.GenerateInput) (json.RawMessage, error) {
	resp, err := r.base.Generate(ctx, input)
	if err == nil || !shouldRetryLLM(err) || ctx.Err() != nil {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"attempt":     1,
		"request_id":  r.requestID,
		"document_id": r.documentID,
		"kind":        string(input.Kind),
		"error":       sanitizeError(err),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.base.Generate(ctx, input)
}

type temporary interface {
	Temporary() bool
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotImplemented) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var temp temporary
	if errors.As(err, &temp) && temp.Temporary() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
