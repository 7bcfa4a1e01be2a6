package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/events"
	"studyviz-backend/internal/extract"
	"studyviz-backend/internal/llm"
	"studyviz-backend/internal/shared/metrics"
	"studyviz-backend/internal/shared/storage/object"
	"studyviz-backend/internal/shared/telemetry"
	"studyviz-backend/internal/visualizations"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 120 * time.Second

// Runner executes the extract, generate and persist steps for uploaded documents
// in the background. Objects and Events are optional.
type Runner struct {
	Repo      documents.Repo
	Extractor extract.Extractor
	LLM       llm.Client
	Objects   object.ObjectStore
	Timeout   time.Duration
	Events    *events.Hub

	mu      sync.Mutex
	tasks   map[string]*Task
	wg      sync.WaitGroup
	closing bool
}

// Start launches a detached run for doc and returns immediately. Only the request
// ID of ctx is carried into the run.
func (r *Runner) Start(ctx context.Context, doc documents.Document, data []byte, kind visualizations.Kind) *Task {
	runCtx, cancel := context.WithCancel(telemetry.DetachedWithRequestID(ctx))
	task := newTask(doc.ID, kind, cancel)

	r.mu.Lock()
	if r.tasks == nil {
		r.tasks = make(map[string]*Task)
	}
	if r.closing {
		cancel()
	}
	r.tasks[doc.ID] = task
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		err := r.run(runCtx, doc, data, kind)
		r.forget(task)
		cancel()
		task.finish(err)
	}()
	return task
}

// Process starts a run without handing out the task.
func (r *Runner) Process(ctx context.Context, doc documents.Document, data []byte, kind visualizations.Kind) {
	r.Start(ctx, doc, data, kind)
}

// Cancel stops the in-flight run for a document, if any.
func (r *Runner) Cancel(documentID string) bool {
	r.mu.Lock()
	task, ok := r.tasks[documentID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	task.Cancel()
	return true
}

// Active returns the number of in-flight runs.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown stops accepting work and waits for in-flight runs. Runs still going
// when ctx ends are canceled, and their documents marked failed.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	r.mu.Lock()
	for _, task := range r.tasks {
		telemetry.Warn("document.shutdown_cancel", map[string]any{
			"document_id": task.DocumentID(),
			"kind":        string(task.Kind()),
		})
		task.Cancel()
	}
	r.mu.Unlock()
	<-done
	return ctx.Err()
}

func (r *Runner) forget(task *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.tasks[task.documentID]; ok && current == task {
		delete(r.tasks, task.documentID)
	}
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *Runner) run(parent context.Context, doc documents.Document, data []byte, kind visualizations.Kind) error {
	timeout := r.timeout()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	startedAt := time.Now().UTC()
	metrics.IncPipelineStarted()
	telemetry.Info("document.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(parent),
		"document_id":       doc.ID,
		"kind":              string(kind),
		"status":            documents.StatusProcessing,
		"status_transition": "uploaded->processing",
	})
	r.publish(doc, false)

	err := r.process(ctx, doc, data, kind)
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = &TimeoutError{After: timeout}
	case errors.Is(ctx.Err(), context.Canceled):
		err = ErrCanceled
	}

	if err != nil {
		if failErr := r.fail(parent, doc.ID, err, startedAt); !errors.Is(failErr, documents.ErrTerminal) {
			return err
		}
		// The completion committed even though its acknowledgement lost the race.
		settled, getErr := r.Repo.GetDocument(context.Background(), doc.ID)
		if getErr != nil || settled.Status != documents.StatusCompleted {
			return err
		}
		r.publish(settled, true)
	}

	completedAt := time.Now().UTC()
	metrics.IncPipelineCompleted(string(kind))
	metrics.ObservePipelineDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("document.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(parent),
		"document_id":       doc.ID,
		"kind":              string(kind),
		"status":            documents.StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

func (r *Runner) process(ctx context.Context, doc documents.Document, data []byte, kind visualizations.Kind) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Repo == nil || r.Extractor == nil {
		return errors.New("pipeline is missing its document repo or extractor")
	}
	if r.LLM == nil {
		return &GenerationError{Kind: kind, Cause: errors.New("missing llm client")}
	}

	text, err := call(ctx, func(ctx context.Context) (string, error) {
		return r.Extractor.Extract(ctx, data)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExtractionError{Err: err}
	}
	text = extract.Clean(text)
	if err := extract.CheckQuality(text); err != nil {
		return &ExtractionError{Err: err}
	}

	if _, err := call(ctx, func(ctx context.Context) (documents.Document, error) {
		return r.Repo.UpdateDocument(ctx, doc.ID, documents.WithText(text))
	}); err != nil {
		return fmt.Errorf("store extracted text: %w", err)
	}
	r.archiveText(ctx, doc, text)

	client := newRetryingLLM(r.LLM, doc.ID, telemetry.RequestIDFromContext(ctx))
	raw, err := call(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return client.Generate(ctx, llm.GenerateInput{Kind: kind, Text: text})
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &GenerationError{Kind: kind, Cause: err}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &GenerationError{Kind: kind, Cause: errEmptyOutput}
	}
	payload, err := visualizations.Normalize(kind, raw)
	if err != nil {
		return &GenerationError{Kind: kind, Cause: err}
	}

	completed, err := call(ctx, func(ctx context.Context) (documents.Document, error) {
		return r.Repo.CompleteWithVisualization(ctx, visualizations.Visualization{
			DocumentID: doc.ID,
			Type:       kind,
			Data:       payload,
		})
	})
	if err != nil {
		return fmt.Errorf("store visualization: %w", err)
	}
	r.publish(completed, true)
	return nil
}

// archiveText keeps a copy of the extracted text next to the upload. Failures only log.
func (r *Runner) archiveText(ctx context.Context, doc documents.Document, text string) {
	if r.Objects == nil || doc.StorageKey == "" {
		return
	}
	key := object.ExtractedTextKey(doc.StorageKey)
	if _, err := r.Objects.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		telemetry.Warn("document.archive_text_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"storage_key": key,
			"error":       err,
		})
	}
}

// fail records the failure with a fresh context. A failed write is logged and
// swallowed, except ErrTerminal, which is returned untouched for a document that
// already finished.
func (r *Runner) fail(ctx context.Context, documentID string, err error, startedAt time.Time) error {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()

	var failed documents.Document
	updateErr := errors.New("no document repo configured")
	if r.Repo != nil {
		failed, updateErr = r.Repo.UpdateDocument(context.Background(), documentID, documents.Failed(msg))
	}
	if errors.Is(updateErr, documents.ErrTerminal) {
		return updateErr
	}
	if updateErr != nil {
		telemetry.Error("document.fail_write", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": documentID,
			"error":       updateErr,
			"original":    msg,
		})
	} else {
		r.publish(failed, true)
	}

	metrics.IncPipelineFailed(code)
	metrics.ObservePipelineDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("document.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"document_id":       documentID,
		"status":            documents.StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"error":             msg,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

func (r *Runner) publish(doc documents.Document, terminal bool) {
	if r.Events == nil {
		return
	}
	r.Events.Publish(events.Event{
		DocumentID: doc.ID,
		Status:     string(doc.Status),
		Terminal:   terminal,
		Data:       doc,
	})
}

// call runs fn under ctx and returns early when ctx ends, abandoning fn if it
// does not honor cancellation. A result that is already available wins over ctx.
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		val, err := fn(ctx)
		ch <- result{val: val, err: err}
	}()

	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		select {
		case res := <-ch:
			return res.val, res.err
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
