package visualizations

import (
	"errors"
	"strings"
	"time"
)

// Kind is the type of study artifact generated from a document.
type Kind string

const (
	KindFlowchart Kind = "flowchart"
	KindMindmap   Kind = "mindmap"
	KindCornell   Kind = "cornell"
)

// ErrInvalidKind is returned for visualization types outside the supported set.
var ErrInvalidKind = errors.New("invalid visualization type")

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindFlowchart, KindMindmap, KindCornell}
}

// ParseKind validates a raw visualization type.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.TrimSpace(raw))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFlowchart, KindMindmap, KindCornell:
		return true
	default:
		return false
	}
}

// Label is the human-readable name used in messages.
func (k Kind) Label() string {
	switch k {
	case KindCornell:
		return "Cornell notes"
	default:
		return string(k)
	}
}

// Visualization is a generated artifact owned by a document.
type Visualization struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Type       Kind      `json:"type"`
	Data       string    `json:"data"`
	CreatedAt  time.Time `json:"createdAt"`
}
