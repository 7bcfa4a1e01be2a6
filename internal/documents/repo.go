package documents

import (
	"context"

	"studyviz-backend/internal/visualizations"
)

// Repo defines persistence operations for documents and their visualizations.
//
// Updates are only accepted while a document is processing; otherwise
// ErrTerminal is returned and nothing changes. CompleteWithVisualization stores
// the visualization and the completed status together or not at all.
type Repo interface {
	CreateDocument(ctx context.Context, doc Document) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (Document, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)

	CompleteWithVisualization(ctx context.Context, viz visualizations.Visualization) (Document, error)
	ListVisualizations(ctx context.Context, documentID string) ([]visualizations.Visualization, error)
	GetVisualization(ctx context.Context, id string) (visualizations.Visualization, error)
}
