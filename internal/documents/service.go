package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"studyviz-backend/internal/extract"
	"studyviz-backend/internal/shared/storage/object"
	"studyviz-backend/internal/shared/telemetry"
	"studyviz-backend/internal/visualizations"
)

const uploadNamespace = "uploads"

// Processor runs the background visualization pipeline for a document.
type Processor interface {
	Process(ctx context.Context, doc Document, data []byte, kind visualizations.Kind)
	Cancel(documentID string) bool
}

// Service contains business logic for documents. Objects and Processor are optional.
type Service struct {
	Repo      Repo
	Objects   object.ObjectStore
	Processor Processor
}

// SubmitInput is a validated-on-submit upload.
type SubmitInput struct {
	FileName string
	Data     []byte
	Kind     string
}

// Submit validates the upload, records a processing document and starts the
// pipeline without waiting for it.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Document, error) {
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" || len(in.Data) == 0 {
		return Document{}, ErrNoFile
	}
	kind, err := visualizations.ParseKind(in.Kind)
	if err != nil {
		return Document{}, ErrInvalidKind
	}
	if !extract.IsPDF(in.Data) {
		return Document{}, ErrNotPDF
	}

	doc := Document{
		Title:    TitleFromFileName(fileName),
		FileName: fileName,
		FileSize: int64(len(in.Data)),
		Status:   StatusProcessing,
	}
	if s.Objects != nil {
		key, _, _, err := s.Objects.Save(ctx, uploadNamespace, fileName, bytes.NewReader(in.Data))
		if err != nil {
			return Document{}, fmt.Errorf("archive upload: %w", err)
		}
		doc.StorageKey = key
	}

	created, err := s.Repo.CreateDocument(ctx, doc)
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	telemetry.Info("document.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"document_id":       created.ID,
		"kind":              string(kind),
		"file_size":         created.FileSize,
		"status":            created.Status,
		"status_transition": "none->processing",
	})

	if s.Processor != nil {
		s.Processor.Process(ctx, created, in.Data, kind)
	}
	return created, nil
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.Repo.GetDocument(ctx, id)
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.ListDocuments(ctx)
}

// Visualizations returns the visualizations of a document. Unknown documents yield an empty list.
func (s *Service) Visualizations(ctx context.Context, documentID string) ([]visualizations.Visualization, error) {
	return s.Repo.ListVisualizations(ctx, documentID)
}

// Visualization returns one visualization of a document. A visualization that
// belongs to another document is reported as ErrNotFound.
func (s *Service) Visualization(ctx context.Context, documentID, id string) (visualizations.Visualization, error) {
	viz, err := s.Repo.GetVisualization(ctx, id)
	if err != nil {
		return visualizations.Visualization{}, err
	}
	if viz.DocumentID != documentID {
		return visualizations.Visualization{}, ErrNotFound
	}
	return viz, nil
}

// OpenFile returns the archived upload of a document together with the
// document. It fails with ErrNotArchived when no object store holds the file.
func (s *Service) OpenFile(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Repo.GetDocument(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if s.Objects == nil || doc.StorageKey == "" {
		return Document{}, nil, ErrNotArchived
	}
	rc, err := s.Objects.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("open archived upload: %w", err)
	}
	return doc, rc, nil
}

// Delete cancels any in-flight run, removes the document with its visualizations
// and drops the archived objects. It reports whether the document existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if s.Processor != nil {
		s.Processor.Cancel(id)
	}

	doc, err := s.Repo.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	existed, err := s.Repo.DeleteDocument(ctx, id)
	if err != nil {
		return false, err
	}
	if s.Objects != nil && doc.StorageKey != "" {
		for _, key := range []string{doc.StorageKey, object.ExtractedTextKey(doc.StorageKey)} {
			if err := s.Objects.Delete(ctx, key); err != nil {
				telemetry.Warn("document.object_delete_failed", map[string]any{
					"request_id":  telemetry.RequestIDFromContext(ctx),
					"document_id": id,
					"storage_key": key,
					"error":       err,
				})
			}
		}
	}
	return existed, nil
}
