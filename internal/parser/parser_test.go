package parser

import (
	"strings"
	"testing"
)

func TestTagsFromInput(t *testing.T) {
	got := TagsFromInput(" work, ideas ,, go ,")
	want := []string{"work", "ideas", "go"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTagsFromInput_KeepsDuplicatesAndOrder(t *testing.T) {
	got := TagsFromInput("b, a, b")
	if len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "b" {
		t.Errorf("got %v, want [b a b]", got)
	}
}

func TestTagsFromInput_Empty(t *testing.T) {
	if got := TagsFromInput("  ,, "); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" home ", "", "errands"})
	if len(got) != 2 || got[0] != "home" || got[1] != "errands" {
		t.Errorf("got %v, want [home errands]", got)
	}
}

func TestPreview_StripsMarkup(t *testing.T) {
	got := Preview("# Heading\n**bold** and *italic* text", 120)
	if strings.ContainsAny(got, "#*") {
		t.Errorf("markup not stripped: %q", got)
	}
	if !strings.Contains(got, "bold and italic text") {
		t.Errorf("content lost: %q", got)
	}
}

func TestPreview_TruncatesWithEllipsis(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := Preview(long, ListPreviewBudget)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix: %q", got)
	}
	if len([]rune(got)) != ListPreviewBudget+1 {
		t.Errorf("len = %d, want %d", len([]rune(got)), ListPreviewBudget+1)
	}
}

func TestPreview_NoEllipsisWhenShort(t *testing.T) {
	got := Preview("short", ListPreviewBudget)
	if got != "short" {
		t.Errorf("got %q, want %q", got, "short")
	}
}

func TestStripMarkdown(t *testing.T) {
	got := StripMarkdown("# Title\n> quote\n- item\n`code`")
	if strings.ContainsAny(got, "#>`-") {
		t.Errorf("punctuation left behind: %q", got)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Note: Draft #1", "My_Note__Draft__1"},
		{"", "note"},
	}
	for _, c := range cases {
		if got := SafeFileName(c.in); got != c.want {
			t.Errorf("SafeFileName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSafeFileName_Truncates(t *testing.T) {
	got := SafeFileName(strings.Repeat("x", 100))
	if len(got) != 60 {
		t.Errorf("len = %d, want 60", len(got))
	}
}
