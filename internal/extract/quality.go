package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	MinWords              = 10
	MaxNonPrintableRatio  = 0.30
	scannedDocumentAdvice = "It may be a scanned or image-based document; please upload a PDF with selectable text."
)

var (
	ErrNoText      = errors.New("no extractable text")
	ErrTooFewWords = errors.New("too few words")
	ErrUnreadable  = errors.New("text is mostly non-printable")
)

// QualityError describes why extracted text cannot be used for generation.
type QualityError struct {
	Reason  error
	Message string
}

func (e *QualityError) Error() string { return e.Message }

func (e *QualityError) Unwrap() error { return e.Reason }

// CheckQuality rejects text that is empty, too short or dominated by non-printable characters.
func CheckQuality(text string) error {
	if strings.TrimSpace(text) == "" {
		return &QualityError{
			Reason:  ErrNoText,
			Message: "PDF contains no extractable text. " + scannedDocumentAdvice,
		}
	}

	ratio := NonPrintableRatio(text)
	if ratio > MaxNonPrintableRatio {
		return &QualityError{
			Reason:  ErrUnreadable,
			Message: fmt.Sprintf("PDF text is mostly unreadable (%.0f%% non-printable characters). %s", ratio*100, scannedDocumentAdvice),
		}
	}

	if words := WordCount(text); words < MinWords {
		return &QualityError{
			Reason:  ErrTooFewWords,
			Message: fmt.Sprintf("PDF contains too little text to visualize: found %d words, need at least %d.", words, MinWords),
		}
	}
	return nil
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// NonPrintableRatio returns the share of runes that are neither printable nor common whitespace.
func NonPrintableRatio(text string) float64 {
	total := 0
	bad := 0
	for _, r := range text {
		total++
		switch r {
		case '\n', '\r', '\t':
			continue
		}
		if !unicode.IsPrint(r) {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}

// Clean drops NUL bytes and invalid UTF-8 sequences, which Postgres text columns reject.
func Clean(text string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(text, ""), "\x00", "")
}
