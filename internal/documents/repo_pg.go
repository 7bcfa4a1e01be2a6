package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyviz-backend/internal/visualizations"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, title, file_name, file_size, uploaded_at, status, text_content, error_message, storage_key`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var status string
	var textContent sql.NullString
	var errorMessage sql.NullString
	var storageKey sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.FileName,
		&doc.FileSize,
		&doc.UploadedAt,
		&status,
		&textContent,
		&errorMessage,
		&storageKey,
	); err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	if textContent.Valid {
		doc.TextContent = &textContent.String
	}
	if errorMessage.Valid {
		doc.ErrorMessage = &errorMessage.String
	}
	if storageKey.Valid {
		doc.StorageKey = storageKey.String
	}
	doc.UploadedAt = doc.UploadedAt.UTC()
	return doc, nil
}

// CreateDocument inserts a new document.
func (r *PGRepo) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (
    id,
    title,
    file_name,
    file_size,
    uploaded_at,
    status,
    text_content,
    error_message,
    storage_key
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = StatusProcessing
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.Title,
		doc.FileName,
		doc.FileSize,
		doc.UploadedAt,
		string(doc.Status),
		nullString(doc.TextContent),
		nullString(doc.ErrorMessage),
		nullIfEmpty(doc.StorageKey),
	)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetDocument fetches a document by id.
func (r *PGRepo) GetDocument(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListDocuments lists documents ordered newest-first.
func (r *PGRepo) ListDocuments(ctx context.Context) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY uploaded_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocument merges upd into a processing document.
func (r *PGRepo) UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (Document, error) {
	query := `
UPDATE documents SET
    status = COALESCE($2::text, status),
    text_content = COALESCE($3::text, text_content),
    error_message = CASE
        WHEN COALESCE($2::text, status) = 'completed' THEN NULL
        ELSE COALESCE($4::text, error_message)
    END
WHERE id = $1 AND status = 'processing'
RETURNING ` + documentColumns

	var status sql.NullString
	if upd.Status != nil {
		status = sql.NullString{String: string(*upd.Status), Valid: true}
	}
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id, status, nullString(upd.TextContent), nullString(upd.ErrorMessage)))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Document{}, err
	}
	return Document{}, r.missOrTerminal(ctx, id)
}

// missOrTerminal distinguishes an unknown id from a document that has already finished.
func (r *PGRepo) missOrTerminal(ctx context.Context, id string) error {
	var status string
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrTerminal
}

// DeleteDocument removes a document and its visualizations in one transaction.
func (r *PGRepo) DeleteDocument(ctx context.Context, id string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM visualizations WHERE document_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete visualizations: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CompleteWithVisualization marks a processing document completed and inserts
// viz in one transaction.
func (r *PGRepo) CompleteWithVisualization(ctx context.Context, viz visualizations.Visualization) (Document, error) {
	const complete = `
UPDATE documents SET status = 'completed', error_message = NULL
WHERE id = $1 AND status = 'processing'
RETURNING ` + documentColumns
	const insert = `INSERT INTO visualizations (id, document_id, type, data, created_at) VALUES ($1, $2, $3, $4, $5)`

	if viz.ID == "" {
		viz.ID = uuid.NewString()
	}
	if viz.CreatedAt.IsZero() {
		viz.CreatedAt = time.Now().UTC()
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := scanDocument(tx.QueryRowContext(ctx, complete, viz.DocumentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = tx.Rollback()
			return Document{}, r.missOrTerminal(ctx, viz.DocumentID)
		}
		return Document{}, fmt.Errorf("mark completed: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, viz.ID, viz.DocumentID, string(viz.Type), viz.Data, viz.CreatedAt); err != nil {
		return Document{}, fmt.Errorf("insert visualization: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

const visualizationColumns = `id, document_id, type, data, created_at`

func scanVisualization(row rowScanner) (visualizations.Visualization, error) {
	var viz visualizations.Visualization
	var kind string
	if err := row.Scan(&viz.ID, &viz.DocumentID, &kind, &viz.Data, &viz.CreatedAt); err != nil {
		return visualizations.Visualization{}, err
	}
	viz.Type = visualizations.Kind(kind)
	viz.CreatedAt = viz.CreatedAt.UTC()
	return viz, nil
}

// ListVisualizations returns the visualizations of a document in creation order.
func (r *PGRepo) ListVisualizations(ctx context.Context, documentID string) ([]visualizations.Visualization, error) {
	query := `SELECT ` + visualizationColumns + ` FROM visualizations WHERE document_id = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []visualizations.Visualization{}
	for rows.Next() {
		viz, err := scanVisualization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, viz)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVisualization fetches a visualization by id.
func (r *PGRepo) GetVisualization(ctx context.Context, id string) (visualizations.Visualization, error) {
	query := `SELECT ` + visualizationColumns + ` FROM visualizations WHERE id = $1`
	viz, err := scanVisualization(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return visualizations.Visualization{}, ErrNotFound
		}
		return visualizations.Visualization{}, err
	}
	return viz, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullIfEmpty(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
