package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyviz-backend/internal/visualizations"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	docs   map[string]Document
	vizzes []visualizations.Visualization
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs: make(map[string]Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateDocument stores a new document, assigning an id and upload time when missing.
func (r *MemoryRepo) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = r.now()
	}
	if doc.Status == "" {
		doc.Status = StatusProcessing
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = cloneDocument(doc)
	return cloneDocument(doc), nil
}

// GetDocument returns a document by id.
func (r *MemoryRepo) GetDocument(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// ListDocuments returns all documents, newest first.
func (r *MemoryRepo) ListDocuments(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	docs := make([]Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, cloneDocument(doc))
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

// UpdateDocument merges upd into a processing document.
func (r *MemoryRepo) UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if doc.Status.IsTerminal() {
		return Document{}, ErrTerminal
	}
	upd.apply(&doc)
	r.docs[id] = doc
	return cloneDocument(doc), nil
}

// DeleteDocument removes a document and its visualizations.
func (r *MemoryRepo) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.vizzes[:0]
	for _, viz := range r.vizzes {
		if viz.DocumentID != id {
			kept = append(kept, viz)
		}
	}
	r.vizzes = kept

	if _, ok := r.docs[id]; !ok {
		return false, nil
	}
	delete(r.docs, id)
	return true, nil
}

// CompleteWithVisualization stores viz and marks its processing document
// completed under one lock.
func (r *MemoryRepo) CompleteWithVisualization(ctx context.Context, viz visualizations.Visualization) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if viz.ID == "" {
		viz.ID = uuid.NewString()
	}
	if viz.CreatedAt.IsZero() {
		viz.CreatedAt = r.now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[viz.DocumentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	if doc.Status != StatusProcessing {
		return Document{}, ErrTerminal
	}
	r.vizzes = append(r.vizzes, viz)
	Completed().apply(&doc)
	r.docs[doc.ID] = doc
	return cloneDocument(doc), nil
}

// ListVisualizations returns the visualizations of a document in creation order.
func (r *MemoryRepo) ListVisualizations(ctx context.Context, documentID string) ([]visualizations.Visualization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []visualizations.Visualization{}
	for _, viz := range r.vizzes {
		if viz.DocumentID == documentID {
			out = append(out, viz)
		}
	}
	return out, nil
}

// GetVisualization returns a visualization by id.
func (r *MemoryRepo) GetVisualization(ctx context.Context, id string) (visualizations.Visualization, error) {
	if err := ctx.Err(); err != nil {
		return visualizations.Visualization{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, viz := range r.vizzes {
		if viz.ID == id {
			return viz, nil
		}
	}
	return visualizations.Visualization{}, ErrNotFound
}

func cloneDocument(doc Document) Document {
	if doc.TextContent != nil {
		text := *doc.TextContent
		doc.TextContent = &text
	}
	if doc.ErrorMessage != nil {
		msg := *doc.ErrorMessage
		doc.ErrorMessage = &msg
	}
	return doc
}

var _ Repo = (*MemoryRepo)(nil)
