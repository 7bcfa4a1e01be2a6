package documents

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrTerminal    = errors.New("document is no longer processing")
	ErrValidation  = errors.New("validation error")
	ErrNotArchived = errors.New("original file is not archived")

	ErrNoFile      = fmt.Errorf("%w: No file uploaded", ErrValidation)
	ErrInvalidKind = fmt.Errorf("%w: Invalid visualization type", ErrValidation)
	ErrNotPDF      = fmt.Errorf("%w: Only PDF files are supported", ErrValidation)
)

// ValidationMessage returns the user-facing part of a validation error.
func ValidationMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return "No file uploaded"
	case errors.Is(err, ErrInvalidKind):
		return "Invalid visualization type"
	case errors.Is(err, ErrNotPDF):
		return "Only PDF files are supported"
	default:
		return err.Error()
	}
}

// rejectReason labels a validation error for the rejected uploads metric.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return "no_file"
	case errors.Is(err, ErrInvalidKind):
		return "invalid_type"
	case errors.Is(err, ErrNotPDF):
		return "not_pdf"
	default:
		return "invalid"
	}
}
