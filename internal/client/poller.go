package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/shared/telemetry"
	"studyviz-backend/internal/visualizations"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollMaxWait  = 2 * time.Minute
)

// ErrPollTimeout is returned when a document is still processing after MaxWait.
var ErrPollTimeout = errors.New("document still processing")

// Result is the final state of a document.
type Result struct {
	Document       documents.Document
	Visualizations []visualizations.Visualization
}

// Poller waits for a document to leave the processing state by re-reading it.
type Poller struct {
	Client   *Client
	Interval time.Duration
	MaxWait  time.Duration
}

// NewPoller returns a Poller with the default interval and upper bound.
func NewPoller(c *Client) *Poller {
	return &Poller{Client: c, Interval: DefaultPollInterval, MaxWait: DefaultPollMaxWait}
}

// WaitForResult polls until the document is completed or failed, then reads its
// visualizations once. Read errors are retried on the next tick; a 404 ends the wait.
func (p *Poller) WaitForResult(ctx context.Context, id string) (Result, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultPollMaxWait
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		doc, err := p.Client.GetDocument(ctx, id)
		switch {
		case err == nil && doc.Status.IsTerminal():
			vizzes, err := p.Client.ListVisualizations(ctx, id)
			if err != nil {
				return Result{Document: doc}, fmt.Errorf("list visualizations: %w", err)
			}
			return Result{Document: doc, Visualizations: vizzes}, nil
		case errors.Is(err, ErrNotFound):
			return Result{}, err
		case err != nil:
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			lastErr = err
			telemetry.Warn("client.poll_failed", map[string]any{
				"document_id": id,
				"error":       err,
			})
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return Result{}, fmt.Errorf("%w after %s: %v", ErrPollTimeout, maxWait, lastErr)
			}
			return Result{}, fmt.Errorf("%w after %s", ErrPollTimeout, maxWait)
		case <-ticker.C:
		}
	}
}
