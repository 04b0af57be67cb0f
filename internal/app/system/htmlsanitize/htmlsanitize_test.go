package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/roomhub/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	if result := htmlsanitize.Sanitize(""); result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestSanitize_PlainText(t *testing.T) {
	result := htmlsanitize.Sanitize("Hello, World!")
	if result != "Hello, World!" {
		t.Errorf("expected plain text unchanged, got %q", result)
	}
}

func TestSanitize_SafeHTML(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	result := htmlsanitize.Sanitize(input)
	if result != input {
		t.Errorf("expected safe HTML preserved, got %q", result)
	}
}

func TestSanitize_AllowsLists(t *testing.T) {
	input := "<ul><li>Item 1</li><li>Item 2</li></ul>"
	result := htmlsanitize.Sanitize(input)
	if result != input {
		t.Errorf("expected list preserved, got %q", result)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	input := "<p>Hello</p><script>alert('xss')</script>"
	result := htmlsanitize.Sanitize(input)
	if result != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", result)
	}
}

func TestSanitize_RemovesEventHandlers(t *testing.T) {
	for _, input := range []string{
		`<button onclick="alert('xss')">Click</button>`,
		`<img src="x" onerror="alert('xss')">`,
	} {
		result := htmlsanitize.Sanitize(input)
		if strings.Contains(result, "onclick") || strings.Contains(result, "onerror") {
			t.Errorf("expected event handler removed from %q, got %q", input, result)
		}
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	input := `<a href="javascript:alert('xss')">Click</a>`
	result := htmlsanitize.Sanitize(input)
	if strings.Contains(result, "javascript:") {
		t.Errorf("expected javascript: href removed, got %q", result)
	}
}

func TestSanitize_SafeLinksGetNoReferrer(t *testing.T) {
	input := `<a href="https://example.com">Link</a>`
	result := htmlsanitize.Sanitize(input)
	if !strings.Contains(result, "https://example.com") {
		t.Errorf("expected safe link preserved, got %q", result)
	}
	if !strings.Contains(result, "noreferrer") {
		t.Errorf("expected rel=noreferrer on link, got %q", result)
	}
}

func TestSanitize_RemovesIframeAndForms(t *testing.T) {
	input := `<p>Content</p><iframe src="https://evil.com"></iframe><form action="/x"><input name="d"></form>`
	result := htmlsanitize.Sanitize(input)
	for _, bad := range []string{"<iframe", "<form", "<input"} {
		if strings.Contains(result, bad) {
			t.Errorf("expected %s removed, got %q", bad, result)
		}
	}
	if !strings.Contains(result, "Content") {
		t.Error("expected safe content to be preserved")
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Night shift", "Night shift"},
		{"  <b>Night</b> shift  ", "Night shift"},
		{"<script>alert(1)</script>Ward 7", "Ward 7"},
		{"Q&A night", "Q&A night"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<p>a &lt; b</p>", "a < b"},
	}
	for _, tc := range tests {
		if got := htmlsanitize.StripTags(tc.in); got != tc.want {
			t.Errorf("StripTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
