package markdown

import (
	"strings"
	"testing"
)

func TestConvert_Basic(t *testing.T) {
	c := New()
	out, err := c.Convert([]byte("# Title\n\nSome *emphasis*.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Title") {
		t.Errorf("missing heading in %q", out)
	}
	if !strings.Contains(out, "<em>emphasis</em>") {
		t.Errorf("missing emphasis in %q", out)
	}
}

func TestConvert_RawHTMLPassesThrough(t *testing.T) {
	c := New()
	out, err := c.Convert([]byte("before\n\n<div class=\"x\">inner</div>\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `<div class="x">inner</div>`) {
		t.Errorf("raw HTML stripped: %q", out)
	}
}

func TestConvert_FootnoteStateDoesNotLeak(t *testing.T) {
	c := New()
	src := []byte("text[^1]\n\n[^1]: note\n")

	first, err := c.Convert(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Convert(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Identical output means footnote counters reset between documents.
	if first != second {
		t.Errorf("outputs differ:\nfirst:  %q\nsecond: %q", first, second)
	}
}
