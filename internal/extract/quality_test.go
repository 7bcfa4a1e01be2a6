package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckQuality(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantReason error
		wantInMsg  string
	}{
		{name: "ok", text: "one two three four five six seven eight nine ten"},
		{name: "empty", text: "", wantReason: ErrNoText, wantInMsg: "scanned"},
		{name: "whitespace", text: " \n\t ", wantReason: ErrNoText, wantInMsg: "scanned"},
		{name: "nine words", text: "one two three four five six seven eight nine", wantReason: ErrTooFewWords, wantInMsg: "found 9 words"},
		{name: "binary noise", text: "ab" + strings.Repeat("\x01\x02\x03", 10), wantReason: ErrUnreadable, wantInMsg: "non-printable"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := CheckQuality(tt.text)
			if tt.wantReason == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantReason) {
				t.Fatalf("expected %v, got %v", tt.wantReason, err)
			}
			if !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Fatalf("expected message to contain %q, got %q", tt.wantInMsg, err.Error())
			}
		})
	}
}

func TestNonPrintableRatioIgnoresLayoutWhitespace(t *testing.T) {
	if got := NonPrintableRatio("a\nb\tc\r"); got != 0 {
		t.Fatalf("expected 0 ratio, got %v", got)
	}
	if got := NonPrintableRatio("\x00\x00ab"); got != 0.5 {
		t.Fatalf("expected 0.5 ratio, got %v", got)
	}
	if got := NonPrintableRatio(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %v", got)
	}
}

func TestRatioAtThresholdPasses(t *testing.T) {
	// 3 of 10 runes non-printable is exactly 30%, which is allowed.
	text := "abcdefg\x01\x02\x03"
	if ratio := NonPrintableRatio(text); ratio != 0.3 {
		t.Fatalf("expected ratio 0.3, got %v", ratio)
	}
	err := CheckQuality(text)
	if errors.Is(err, ErrUnreadable) {
		t.Fatalf("ratio at threshold should not be unreadable")
	}
	if !errors.Is(err, ErrTooFewWords) {
		t.Fatalf("expected too-few-words error, got %v", err)
	}
}

func TestCleanDropsNULAndInvalidUTF8(t *testing.T) {
	got := Clean("caf\xc3\xa9\x00 notes \xff\xfeend")
	if got != "café notes end" {
		t.Fatalf("unexpected cleaned text %q", got)
	}
	if Clean("") != "" {
		t.Fatalf("expected empty text to stay empty")
	}
}
