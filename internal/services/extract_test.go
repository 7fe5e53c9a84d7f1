package services

import (
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	html := `<html><head><title>Ignored</title></head><body>
		<script>var x = 1;</script>
		<style>.hidden { display: none; }</style>
		<h1>Main   Title</h1>
		<p>First paragraph with <a href="#">a link</a> &amp; an entity.</p>
	</body></html>`

	got := StripHTML(html)

	if strings.Contains(got, "var x") || strings.Contains(got, "display: none") {
		t.Errorf("script/style content leaked: %q", got)
	}
	if strings.Contains(got, "Ignored") {
		t.Errorf("head content leaked: %q", got)
	}
	if !strings.Contains(got, "Main Title") {
		t.Errorf("visible text missing or whitespace not collapsed: %q", got)
	}
	if !strings.Contains(got, "a link & an entity.") {
		t.Errorf("entity not decoded: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("tags survived: %q", got)
	}
}

func TestStripHTMLEmpty(t *testing.T) {
	if got := StripHTML("<div><span></span></div>"); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}
