package visualizations

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw     string
		want    Kind
		wantErr bool
	}{
		{raw: "flowchart", want: KindFlowchart},
		{raw: " mindmap ", want: KindMindmap},
		{raw: "cornell", want: KindCornell},
		{raw: "bogus", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "Flowchart", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseKind(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKind) {
					t.Fatalf("expected ErrInvalidKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseKind(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		raw     string
		wantErr bool
	}{
		{name: "flowchart ok", kind: KindFlowchart, raw: `{"nodes":[],"edges":[]}`},
		{name: "flowchart missing edges", kind: KindFlowchart, raw: `{"nodes":[]}`, wantErr: true},
		{name: "flowchart nodes not array", kind: KindFlowchart, raw: `{"nodes":{},"edges":[]}`, wantErr: true},
		{name: "mindmap ok", kind: KindMindmap, raw: `{"id":"root","label":"Topic"}`},
		{name: "mindmap missing label", kind: KindMindmap, raw: `{"id":"root"}`, wantErr: true},
		{name: "mindmap blank id", kind: KindMindmap, raw: `{"id":" ","label":"Topic"}`, wantErr: true},
		{name: "cornell ok", kind: KindCornell, raw: `{"cues":"q","notes":"n","summary":"s"}`},
		{name: "cornell missing summary", kind: KindCornell, raw: `{"cues":"q","notes":"n"}`, wantErr: true},
		{name: "not an object", kind: KindCornell, raw: `["cues"]`, wantErr: true},
		{name: "empty", kind: KindMindmap, raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.kind, json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrSchemaMismatch) {
					t.Fatalf("expected ErrSchemaMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeMindmapKeepsTree(t *testing.T) {
	raw := `{"id":"root","label":"Cells","extra":true,"children":[{"id":"c1","label":"Nucleus","children":[{"id":"c1a","label":"DNA"}]}]}`

	out, err := Normalize(KindMindmap, json.RawMessage(raw))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	var node MindmapNode
	if err := json.Unmarshal([]byte(out), &node); err != nil {
		t.Fatalf("decode normalized: %v", err)
	}
	if node.ID != "root" || len(node.Children) != 1 || len(node.Children[0].Children) != 1 {
		t.Fatalf("unexpected tree: %+v", node)
	}
	var generic map[string]any
	_ = json.Unmarshal([]byte(out), &generic)
	if _, ok := generic["extra"]; ok {
		t.Fatalf("expected unknown fields to be dropped, got %s", out)
	}
}

func TestNormalizeFlowchartOmitsEmptyOptionals(t *testing.T) {
	raw := `{"nodes":[{"id":"n1","type":"default","position":{"x":10,"y":20},"data":{"label":"Start"}}],"edges":[{"id":"e1","source":"n1","target":"n1"}]}`

	out, err := Normalize(KindFlowchart, json.RawMessage(raw))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := `{"nodes":[{"id":"n1","type":"default","position":{"x":10,"y":20},"data":{"label":"Start"}}],"edges":[{"id":"e1","source":"n1","target":"n1"}]}`
	if out != want {
		t.Fatalf("normalized = %s\nwant %s", out, want)
	}
}
