package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"studyviz-backend/internal/visualizations"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var documentColumnNames = []string{"id", "title", "file_name", "file_size", "uploaded_at", "status", "text_content", "error_message", "storage_key"}

func TestPGRepoCreateDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	doc := Document{
		ID:         "doc-1",
		Title:      "Notes",
		FileName:   "Notes.pdf",
		FileSize:   1024,
		UploadedAt: now,
		StorageKey: "uploads/abc_Notes.pdf",
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "Notes", "Notes.pdf", int64(1024), now, "processing", nil, nil, "uploads/abc_Notes.pdf").
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := repo.CreateDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if created.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", created.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetDocumentNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(documentColumnNames))

	if _, err := repo.GetDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListDocumentsScansNullables(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentColumnNames).
		AddRow("doc-2", "B", "B.pdf", int64(2), now, "failed", nil, "Failed to generate mindmap: boom", nil).
		AddRow("doc-1", "A", "A.pdf", int64(1), now.Add(-time.Minute), "completed", "text", nil, "key")
	mock.ExpectQuery("SELECT (.+) FROM documents ORDER BY uploaded_at DESC").WillReturnRows(rows)

	docs, err := repo.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ErrorMessage == nil || *docs[0].ErrorMessage != "Failed to generate mindmap: boom" {
		t.Fatalf("expected error message on failed doc")
	}
	if docs[0].TextContent != nil {
		t.Fatalf("expected nil text content")
	}
	if docs[1].TextContent == nil || *docs[1].TextContent != "text" || docs[1].StorageKey != "key" {
		t.Fatalf("unexpected second doc %+v", docs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE documents SET").
		WithArgs("doc-1", "completed", nil, nil).
		WillReturnRows(sqlmock.NewRows(documentColumnNames).
			AddRow("doc-1", "A", "A.pdf", int64(1), now, "completed", "text", nil, nil))

	doc, err := repo.UpdateDocument(context.Background(), "doc-1", Completed())
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if doc.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateTerminalDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("UPDATE documents SET").
		WithArgs("doc-1", "failed", nil, "late").
		WillReturnRows(sqlmock.NewRows(documentColumnNames))
	mock.ExpectQuery("SELECT status FROM documents WHERE id").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

	if _, err := repo.UpdateDocument(context.Background(), "doc-1", Failed("late")); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateUnknownDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("UPDATE documents SET").
		WithArgs("missing", nil, "text", nil).
		WillReturnRows(sqlmock.NewRows(documentColumnNames))
	mock.ExpectQuery("SELECT status FROM documents WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	if _, err := repo.UpdateDocument(context.Background(), "missing", WithText("text")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteDocumentCascades(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM visualizations WHERE document_id").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM documents WHERE id").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	existed, err := repo.DeleteDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if !existed {
		t.Fatalf("expected document to exist")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteWithVisualization(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents SET status = 'completed'").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumnNames).
			AddRow("doc-1", "Notes", "Notes.pdf", int64(1024), now, "completed", "text", nil, nil))
	mock.ExpectExec("INSERT INTO visualizations").
		WithArgs("viz-1", "doc-1", "mindmap", `{"id":"root","label":"L"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc, err := repo.CompleteWithVisualization(context.Background(), visualizations.Visualization{
		ID:         "viz-1",
		DocumentID: "doc-1",
		Type:       visualizations.KindMindmap,
		Data:       `{"id":"root","label":"L"}`,
	})
	if err != nil {
		t.Fatalf("CompleteWithVisualization: %v", err)
	}
	if doc.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteWithVisualizationRollsBackFailedInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents SET status = 'completed'").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumnNames).
			AddRow("doc-1", "Notes", "Notes.pdf", int64(1024), now, "completed", "text", nil, nil))
	mock.ExpectExec("INSERT INTO visualizations").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.CompleteWithVisualization(context.Background(), visualizations.Visualization{
		ID:         "viz-1",
		DocumentID: "doc-1",
		Type:       visualizations.KindMindmap,
		Data:       `{}`,
	})
	if err == nil {
		t.Fatalf("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteWithVisualizationOnTerminalDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents SET status = 'completed'").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumnNames))
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT status FROM documents WHERE id").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

	_, err := repo.CompleteWithVisualization(context.Background(), visualizations.Visualization{
		ID:         "viz-1",
		DocumentID: "doc-1",
		Type:       visualizations.KindMindmap,
		Data:       `{"id":"root","label":"L"}`,
	})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListVisualizations(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM visualizations WHERE document_id").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "type", "data", "created_at"}).
			AddRow("viz-1", "doc-1", "cornell", `{"cues":"c","notes":"n","summary":"s"}`, now))

	vizzes, err := repo.ListVisualizations(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ListVisualizations: %v", err)
	}
	if len(vizzes) != 1 || vizzes[0].Type != visualizations.KindCornell {
		t.Fatalf("unexpected visualizations %+v", vizzes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
