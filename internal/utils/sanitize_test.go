package utils

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Buy milk", "Buy milk"},
		{"trims whitespace", "  Buy milk \n", "Buy milk"},
		{"keeps ampersands", "Tom & Jerry", "Tom & Jerry"},
		{"strips tags", "<b>Buy</b> milk", "Buy milk"},
		{"removes script", "Hello<script>alert('xss')</script>", "Hello"},
		{"strips attributes", `<a href="javascript:alert(1)">Click</a>`, "Click"},
		{"entity-encoded markup", "&lt;b&gt;x&lt;/b&gt;", "x"},
		{"entity-encoded handler", "&lt;img src=x onerror=alert(1)&gt;", ""},
		{"double-encoded markup", "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;ok", "ok"},
		{"keeps comparison", "a < b", "a < b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeTextLeavesNoTags(t *testing.T) {
	inputs := []string{
		"&lt;b&gt;x&lt;/b&gt;",
		"&lt;img src=x onerror=alert(1)&gt;",
		"&#60;svg onload=alert(1)&#62;",
		"&amp;amp;amp;amp;amp;lt;i&amp;amp;amp;amp;amp;gt;deep",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got := SanitizeText(in)
			if strings.Contains(got, "<") {
				t.Errorf("SanitizeText(%q) = %q, contains markup", in, got)
			}
		})
	}
}
