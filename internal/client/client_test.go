package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/visualizations"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUploadSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "notes.pdf" || string(data) != "%PDF-1.4" {
			t.Errorf("unexpected file %q %q", header.Filename, data)
		}
		if got := r.FormValue("type"); got != "mindmap" {
			t.Errorf("expected type mindmap, got %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "doc-1", "status": "processing", "title": "notes"})
	}))
	defer srv.Close()

	doc, err := New(srv.URL+"/").Upload(context.Background(), "notes.pdf", []byte("%PDF-1.4"), visualizations.KindMindmap)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.ID != "doc-1" || doc.Status != documents.StatusProcessing {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{name: "structured", status: http.StatusBadRequest, body: `{"error":{"code":"validation_error","message":"Only PDF files are supported"}}`, code: "validation_error", message: "Only PDF files are supported"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"rate_limited","retryAfterMs":1000}`, code: "rate_limited"},
		{name: "plain", status: http.StatusBadGateway, body: "bad gateway", message: "bad gateway"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).GetDocument(context.Background(), "x")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Code != tc.code || apiErr.Message != tc.message {
				t.Fatalf("unexpected error %+v", apiErr)
			}
		})
	}
}

func TestNotFoundAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/api/documents/doc-1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "not_found", "message": "Document not found"}})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.DeleteDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeleteDocument(context.Background(), "doc-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListVisualizationsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	vizzes, err := New(srv.URL).ListVisualizations(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if vizzes == nil || len(vizzes) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", vizzes)
	}
}

func TestPollerWaitsForTerminalStatus(t *testing.T) {
	var reads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/documents/doc-1":
			status := "processing"
			n := reads.Add(1)
			if n == 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if n >= 4 {
				status = "completed"
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": "doc-1", "status": status})
		case "/api/visualizations/doc-1":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "v1", "documentId": "doc-1", "type": "flowchart", "data": "{}"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := &Poller{Client: New(srv.URL), Interval: 5 * time.Millisecond, MaxWait: 5 * time.Second}
	res, err := p.WaitForResult(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Document.Status != documents.StatusCompleted {
		t.Fatalf("expected completed, got %s", res.Document.Status)
	}
	if len(res.Visualizations) != 1 || res.Visualizations[0].Type != visualizations.KindFlowchart {
		t.Fatalf("unexpected visualizations %+v", res.Visualizations)
	}
	if got := reads.Load(); got != 4 {
		t.Fatalf("expected 4 reads, got %d", got)
	}
}

func TestPollerReturnsFailedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/documents/doc-1":
			writeJSON(w, http.StatusOK, map[string]any{"id": "doc-1", "status": "failed", "errorMessage": "Processing timed out after 2m0s"})
		default:
			_, _ = io.WriteString(w, "[]")
		}
	}))
	defer srv.Close()

	res, err := NewPoller(New(srv.URL)).WaitForResult(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Document.Status != documents.StatusFailed || res.Document.ErrorMessage == nil {
		t.Fatalf("unexpected document %+v", res.Document)
	}
	if len(res.Visualizations) != 0 {
		t.Fatalf("expected no visualizations")
	}
}

func TestPollerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "doc-1", "status": "processing"})
	}))
	defer srv.Close()

	p := &Poller{Client: New(srv.URL), Interval: 5 * time.Millisecond, MaxWait: 30 * time.Millisecond}
	_, err := p.WaitForResult(context.Background(), "doc-1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
}

func TestPollerStopsOnNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := &Poller{Client: New(srv.URL), Interval: 5 * time.Millisecond, MaxWait: 5 * time.Second}
	if _, err := p.WaitForResult(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPollerHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "doc-1", "status": "processing"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p := &Poller{Client: New(srv.URL), Interval: 5 * time.Millisecond, MaxWait: 5 * time.Second}
	if _, err := p.WaitForResult(ctx, "doc-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
