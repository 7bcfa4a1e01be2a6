package visualizations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch marks generated payloads that do not match the shape of their kind.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ValidatePayload checks the required fields of raw for the given kind.
func ValidatePayload(kind Kind, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty payload", ErrSchemaMismatch)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("%w: payload is not a JSON object: %v", ErrSchemaMismatch, err)
	}

	switch kind {
	case KindFlowchart:
		for _, key := range []string{"nodes", "edges"} {
			if !isArray(obj[key]) {
				return fmt.Errorf("%w: invalid flowchart structure: %q must be an array", ErrSchemaMismatch, key)
			}
		}
	case KindMindmap:
		for _, key := range []string{"id", "label"} {
			if !isNonEmptyString(obj[key]) {
				return fmt.Errorf("%w: invalid mindmap structure: %q is required", ErrSchemaMismatch, key)
			}
		}
	case KindCornell:
		for _, key := range []string{"cues", "notes", "summary"} {
			if !isNonEmptyString(obj[key]) {
				return fmt.Errorf("%w: invalid Cornell notes structure: %q is required", ErrSchemaMismatch, key)
			}
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

// Normalize validates raw and re-encodes it through the typed schema of kind.
func Normalize(kind Kind, raw json.RawMessage) (string, error) {
	if err := ValidatePayload(kind, raw); err != nil {
		return "", err
	}

	var target any
	switch kind {
	case KindFlowchart:
		target = &FlowchartData{}
	case KindMindmap:
		target = &MindmapNode{}
	case KindCornell:
		target = &CornellNote{}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	out, err := json.Marshal(target)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNonEmptyString(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return strings.TrimSpace(s) != ""
}
