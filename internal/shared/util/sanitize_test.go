package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "notes.pdf", want: "notes.pdf"},
		{name: "separators", in: "a/b\\c.pdf", want: "a_b_c.pdf"},
		{name: "trimmed", in: "  lecture.pdf ", want: "lecture.pdf"},
		{name: "traversal", in: "../etc/passwd", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
		{name: "control characters", in: "lec\x00ture\n.pdf", want: "lecture.pdf"},
		{name: "only control characters", in: "\x01\x02", wantErr: true},
		{name: "long name keeps extension", in: strings.Repeat("a", 300) + ".pdf", want: strings.Repeat("a", MaxFileNameBytes-4) + ".pdf"},
		{name: "long multibyte name", in: strings.Repeat("é", 150), want: strings.Repeat("é", MaxFileNameBytes/2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
