package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"studyviz-backend/internal/extract"
	"studyviz-backend/internal/visualizations"
)

const (
	ErrorCodeExtraction = "EXTRACTION_ERROR"
	ErrorCodeGeneration = "GENERATION_ERROR"
	ErrorCodeTimeout    = "TIMEOUT"
	ErrorCodeCanceled   = "CANCELED"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)

var (
	// ErrCanceled is recorded when a run is stopped before finishing.
	ErrCanceled = errors.New("Processing was canceled")

	errEmptyOutput = errors.New("empty response from generator")
)

// ExtractionError is a failure to obtain usable text from the upload.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "Failed to extract text from PDF"
	}
	var quality *extract.QualityError
	if errors.As(e.Err, &quality) {
		return quality.Error()
	}
	return "Failed to extract text from PDF: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Code() string { return ErrorCodeExtraction }

// GenerationError wraps a generator failure, malformed output or a failed shape check.
type GenerationError struct {
	Kind  visualizations.Kind
	Cause error
}

func (e *GenerationError) Error() string {
	cause := "Unknown error"
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return fmt.Sprintf("Failed to generate %s: %s", e.Kind.Label(), cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Code() string { return ErrorCodeGeneration }

// TimeoutError is recorded when a run exceeds its deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Processing timed out after %s", e.After)
}

func (e *TimeoutError) Code() string { return ErrorCodeTimeout }

type coder interface {
	Code() string
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	if errors.Is(err, ErrCanceled) {
		return ErrorCodeCanceled
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(extract.Clean(err.Error()), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
