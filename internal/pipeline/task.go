package pipeline

import (
	"context"
	"sync"

	"studyviz-backend/internal/visualizations"
)

// Task is one detached processing run for a document.
type Task struct {
	documentID string
	kind       visualizations.Kind
	cancel     context.CancelFunc
	done       chan struct{}

	mu  sync.Mutex
	err error
}

func newTask(documentID string, kind visualizations.Kind, cancel context.CancelFunc) *Task {
	return &Task{
		documentID: documentID,
		kind:       kind,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// DocumentID returns the document being processed.
func (t *Task) DocumentID() string { return t.documentID }

// Kind returns the requested visualization kind.
func (t *Task) Kind() visualizations.Kind { return t.kind }

// Done is closed once the document reached a terminal state or the run gave up on it.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel stops the run. The document is marked failed unless it already finished.
func (t *Task) Cancel() { t.cancel() }

// Err returns the failure of a finished run, or nil while running or after success.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the run finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
