package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kavinb/docshorts/internal/models"
)

func TestSanitizeNarration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, world!", "Hello, world!"},
		{"Costs $5 & more", "Costs 5  more"},
		{"What?! Yes - fine.", "What?! Yes - fine."},
	}

	for _, tt := range tests {
		if got := SanitizeNarration(tt.in); got != tt.want {
			t.Errorf("SanitizeNarration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeNarrationCanEmpty(t *testing.T) {
	if got := SanitizeNarration("@#$%^&*"); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestWrapCaptionEmpty(t *testing.T) {
	lines := WrapCaption("", CaptionMaxWidth, CaptionFontSize)
	if len(lines) != 0 {
		t.Errorf("expected zero lines for empty text, got %d", len(lines))
	}

	lines = WrapCaption("   ", CaptionMaxWidth, CaptionFontSize)
	if len(lines) != 0 {
		t.Errorf("expected zero lines for whitespace text, got %d", len(lines))
	}
}

func TestWrapCaptionFitsWidth(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog and keeps on running far away"
	lines := WrapCaption(text, CaptionMaxWidth, CaptionFontSize)

	if len(lines) < 2 {
		t.Fatalf("expected text to wrap into multiple lines, got %d", len(lines))
	}

	// Every line's estimated width must fit the effective width.
	effectiveWidth := float64(CaptionMaxWidth) * 0.8
	charWidth := float64(CaptionFontSize) * 0.6
	spaceWidth := float64(CaptionFontSize) * 0.3
	for _, line := range lines {
		width := 0.0
		for _, word := range strings.Fields(line) {
			width += float64(len(word))*charWidth + spaceWidth
		}
		if width > effectiveWidth {
			t.Errorf("line %q estimated width %.0f exceeds %.0f", line, width, effectiveWidth)
		}
	}

	// Word order must survive the wrap.
	if strings.Join(strings.Fields(strings.Join(lines, " ")), " ") != text {
		t.Errorf("wrapped lines lost or reordered words: %v", lines)
	}
}

func TestWrapCaptionSingleShortWord(t *testing.T) {
	lines := WrapCaption("Hi", CaptionMaxWidth, CaptionFontSize)
	if len(lines) != 1 || lines[0] != "Hi" {
		t.Errorf("expected single line [Hi], got %v", lines)
	}
}

func TestCaptionBlockTop(t *testing.T) {
	// Two lines at fontSize 50 with spacing 20: 2*50 + 1*20 = 120 tall.
	top, err := CaptionBlockTop(2, 50, 20, 1920, "top")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top != 30 {
		t.Errorf("top anchor: expected 30, got %d", top)
	}

	center, err := CaptionBlockTop(2, 50, 20, 1920, "center")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if center != (1920-120)/2 {
		t.Errorf("center anchor: expected %d, got %d", (1920-120)/2, center)
	}

	bottom, err := CaptionBlockTop(2, 50, 20, 1920, "bottom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bottom != 1920-120-30-60 {
		t.Errorf("bottom anchor: expected %d, got %d", 1920-120-30-60, bottom)
	}
}

func TestCaptionBlockTopInvalidAnchor(t *testing.T) {
	if _, err := CaptionBlockTop(1, 50, 20, 1920, "middle"); err == nil {
		t.Error("expected error for invalid anchor, got nil")
	}
}

func TestBuildTimelineGapless(t *testing.T) {
	entries := []TimelineEntry{
		{SceneIndex: 1, Text: "First scene narration", Duration: 4.0},
		{SceneIndex: 2, Text: "Second scene narration", Duration: 3.5},
		{SceneIndex: 3, Text: "Third scene narration", Duration: 5.0},
	}

	cues := BuildTimeline(entries)
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(cues))
	}

	wantBounds := [][2]float64{{0, 4.0}, {4.0, 7.5}, {7.5, 12.5}}
	for i, cue := range cues {
		if cue.Start != wantBounds[i][0] || cue.End != wantBounds[i][1] {
			t.Errorf("cue %d: got [%.1f, %.1f], want [%.1f, %.1f]",
				i, cue.Start, cue.End, wantBounds[i][0], wantBounds[i][1])
		}
	}

	// Gapless: each cue starts exactly where the previous ended.
	for i := 1; i < len(cues); i++ {
		if cues[i].Start != cues[i-1].End {
			t.Errorf("gap between cue %d and %d: %.3f != %.3f",
				i-1, i, cues[i-1].End, cues[i].Start)
		}
	}

	if cues[0].Start != 0 {
		t.Errorf("first cue must start at zero, got %.3f", cues[0].Start)
	}
}

func TestBuildTimelineEmpty(t *testing.T) {
	cues := BuildTimeline(nil)
	if len(cues) != 0 {
		t.Errorf("expected no cues, got %d", len(cues))
	}
}

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{4.5, "00:00:04,500"},
		{65.25, "00:01:05,250"},
		{3661.5, "01:01:01,500"},
		{-2, "00:00:00,000"},
	}

	for _, tt := range tests {
		if got := FormatSRTTime(tt.seconds); got != tt.want {
			t.Errorf("FormatSRTTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestWriteSRT(t *testing.T) {
	cues := []models.CaptionCue{
		{SceneIndex: 1, Lines: []string{"Hello there"}, Start: 0, End: 2.5},
		{SceneIndex: 2, Lines: []string{"Second cue", "wrapped line"}, Start: 2.5, End: 6},
	}

	path := filepath.Join(t.TempDir(), "subtitles.srt")
	if err := WriteSRT(cues, path); err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read SRT: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "00:00:00,000 --> 00:00:02,500") {
		t.Errorf("missing first cue timing in:\n%s", content)
	}
	if !strings.Contains(content, "00:00:02,500 --> 00:00:06,000") {
		t.Errorf("missing second cue timing in:\n%s", content)
	}
	if !strings.Contains(content, "Second cue wrapped line") {
		t.Errorf("wrapped lines should be joined in SRT text:\n%s", content)
	}
}

func TestBuildCaptionFilterNoLines(t *testing.T) {
	filter, err := buildCaptionFilter(nil, 5.0, "bottom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter != "null" {
		t.Errorf("expected identity filter for no lines, got %q", filter)
	}
}

func TestBuildCaptionFilter(t *testing.T) {
	filter, err := buildCaptionFilter([]string{"First line", "Second line"}, 7.25, "bottom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Count(filter, "drawtext=") != 2 {
		t.Errorf("expected one drawtext per line, got: %s", filter)
	}
	if !strings.Contains(filter, "enable='between(t,0,7.250)'") {
		t.Errorf("captions must be enabled on the segment-local clock: %s", filter)
	}
	if !strings.Contains(filter, "box=1:boxcolor=black@0.5:boxborderw=5") {
		t.Errorf("missing box styling: %s", filter)
	}
	if !strings.Contains(filter, "x=(w-tw)/2") {
		t.Errorf("captions must be horizontally centered: %s", filter)
	}
}

func TestBuildCaptionFilterInvalidAnchor(t *testing.T) {
	if _, err := buildCaptionFilter([]string{"text"}, 3, "sideways"); err == nil {
		t.Error("expected error for invalid anchor, got nil")
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`it's 5:30`)
	if !strings.Contains(got, `'\''`) {
		t.Errorf("quote not escaped: %q", got)
	}
	if !strings.Contains(got, `\:`) {
		t.Errorf("colon not escaped: %q", got)
	}
}
