package documents

import (
	"regexp"
	"time"
)

// Status is the processing state of a document.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents an uploaded PDF and its processing state.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FileName     string    `json:"fileName"`
	FileSize     int64     `json:"fileSize"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Status       Status    `json:"status"`
	TextContent  *string   `json:"textContent"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	StorageKey   string    `json:"-"`
}

// DocumentUpdate is a partial update; nil fields are left unchanged.
type DocumentUpdate struct {
	Status       *Status
	TextContent  *string
	ErrorMessage *string
}

// apply merges upd into doc. Completing a document clears any error message.
func (upd DocumentUpdate) apply(doc *Document) {
	if upd.Status != nil {
		doc.Status = *upd.Status
	}
	if upd.TextContent != nil {
		text := *upd.TextContent
		doc.TextContent = &text
	}
	if upd.ErrorMessage != nil {
		msg := *upd.ErrorMessage
		doc.ErrorMessage = &msg
	}
	if doc.Status == StatusCompleted {
		doc.ErrorMessage = nil
	}
}

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

// TitleFromFileName strips a trailing .pdf extension, case-insensitively.
func TitleFromFileName(fileName string) string {
	return pdfSuffix.ReplaceAllString(fileName, "")
}

func statusPtr(s Status) *Status { return &s }

func stringPtr(s string) *string { return &s }

// Completed returns an update that marks a document completed.
func Completed() DocumentUpdate {
	return DocumentUpdate{Status: statusPtr(StatusCompleted)}
}

// Failed returns an update that marks a document failed with message.
func Failed(message string) DocumentUpdate {
	return DocumentUpdate{Status: statusPtr(StatusFailed), ErrorMessage: stringPtr(message)}
}

// WithText returns an update that records extracted text.
func WithText(text string) DocumentUpdate {
	return DocumentUpdate{TextContent: stringPtr(text)}
}
