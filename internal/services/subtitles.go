package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kavinb/docshorts/internal/models"
)

// ---------------------------------------------------------------------------
// Subtitle timeline builder
//
// Turns the ordered list of (scene, narration, measured audio duration) into
// a gapless cue timeline plus a greedy word-wrapped caption layout. The same
// wrapped lines are burned into each scene segment (drawtext) and written to
// the SRT artifact on the global timeline.
// ---------------------------------------------------------------------------

// Caption styling — portrait 1080x1920 frame.
const (
	frameWidth  = 1080
	frameHeight = 1920

	CaptionFontSize    = 50
	captionFont        = "Arial"
	captionFontColor   = "white"
	captionLineSpacing = 20

	// Horizontal room for text: full frame minus a 20px gutter per side.
	CaptionMaxWidth = frameWidth - 40

	// Vertical placement margins.
	captionMargin    = 30
	captionBottomGap = 60 // extra reserve above the bottom edge
)

// emojiPattern covers the common emoji blocks; anything it misses is caught
// by the allowed-charset pass below.
var emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{24C2}-\x{1F251}]+`)

var disallowedPattern = regexp.MustCompile(`[^A-Za-z0-9\s.,?!-]`)

// SanitizeNarration strips emoji and any character outside the caption
// charset. The result feeds both TTS cue text and the burned captions.
func SanitizeNarration(text string) string {
	text = emojiPattern.ReplaceAllString(text, "")
	return disallowedPattern.ReplaceAllString(text, "")
}

// WrapCaption greedily wraps text into lines that fit the usable caption
// width (80% of maxWidth). Character widths are estimated from the font
// size: 0.6×size per character plus a 0.3×size trailing space per word.
// A word that overflows closes the current line and starts the next one.
// Empty input yields zero lines, not an empty line.
func WrapCaption(text string, maxWidth, fontSize int) []string {
	effectiveWidth := float64(maxWidth) * 0.8
	charWidth := float64(fontSize) * 0.6
	spaceWidth := float64(fontSize) * 0.3

	var lines []string
	var current []string
	currentWidth := 0.0

	for _, word := range strings.Fields(text) {
		wordWidth := float64(len(word))*charWidth + spaceWidth
		if currentWidth+wordWidth <= effectiveWidth {
			current = append(current, word)
			currentWidth += wordWidth
		} else {
			if len(current) > 0 {
				lines = append(lines, strings.Join(current, " "))
			}
			current = []string{word}
			currentWidth = wordWidth
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}

	return lines
}

// CaptionBlockTop returns the y coordinate of the first caption line for a
// stacked block of totalLines lines. Anchor must be top, center, or bottom;
// anything else is a configuration error, never a silent fallback.
func CaptionBlockTop(totalLines, fontSize, lineSpacing, videoHeight int, anchor string) (int, error) {
	totalHeight := totalLines*fontSize + (totalLines-1)*lineSpacing

	switch anchor {
	case "top":
		return captionMargin, nil
	case "center":
		return (videoHeight - totalHeight) / 2, nil
	case "bottom":
		return videoHeight - totalHeight - captionMargin - captionBottomGap, nil
	default:
		return 0, fmt.Errorf("invalid subtitle anchor %q", anchor)
	}
}

// TimelineEntry is one successfully audio-rendered scene: scenes missing an
// audio asset contribute no entry and therefore never advance the clock.
type TimelineEntry struct {
	SceneIndex int
	Text       string  // sanitized narration
	Duration   float64 // measured audio duration, seconds
}

// BuildTimeline produces the gapless cue timeline: cue i+1 starts exactly
// where cue i ends, and the first cue starts at zero.
func BuildTimeline(entries []TimelineEntry) []models.CaptionCue {
	cues := make([]models.CaptionCue, 0, len(entries))
	current := 0.0

	for _, e := range entries {
		cues = append(cues, models.CaptionCue{
			SceneIndex: e.SceneIndex,
			Lines:      WrapCaption(e.Text, CaptionMaxWidth, CaptionFontSize),
			Start:      current,
			End:        current + e.Duration,
		})
		current += e.Duration
	}

	return cues
}

// WriteSRT writes the standard numbered-cue subtitle artifact:
// cue number, "HH:MM:SS,mmm --> HH:MM:SS,mmm", text, blank line.
func WriteSRT(cues []models.CaptionCue, path string) error {
	var sb strings.Builder

	for _, cue := range cues {
		sb.WriteString(fmt.Sprintf("%d\n", cue.SceneIndex))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", FormatSRTTime(cue.Start), FormatSRTTime(cue.End)))
		sb.WriteString(strings.Join(cue.Lines, " "))
		sb.WriteString("\n\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write SRT file: %w", err)
	}
	return nil
}

// FormatSRTTime converts seconds to the SRT timestamp format HH:MM:SS,mmm.
func FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	whole := int(seconds)
	millis := int((seconds - float64(whole)) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d,%03d", whole/3600, (whole%3600)/60, whole%60, millis)
}

// buildCaptionFilter constructs the drawtext chain for one scene segment:
// one draw operation per wrapped line, boxed semi-opaque background, visible
// on the segment's own clock from 0 to the segment duration. Returns "null"
// (the identity filter) when there are no lines to draw.
func buildCaptionFilter(lines []string, segmentDuration float64, anchor string) (string, error) {
	if len(lines) == 0 {
		return "null", nil
	}

	top, err := CaptionBlockTop(len(lines), CaptionFontSize, captionLineSpacing, frameHeight, anchor)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(lines))
	for idx, line := range lines {
		y := top + (CaptionFontSize+captionLineSpacing)*idx
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':fontcolor=%s:fontsize=%d:font='%s':"+
				"box=1:boxcolor=black@0.5:boxborderw=5:"+
				"x=(w-tw)/2:y=%d:line_spacing=%d:"+
				"fix_bounds=true:enable='between(t,0,%.3f)'",
			escapeDrawtext(line), captionFontColor, CaptionFontSize, captionFont,
			y, captionLineSpacing, segmentDuration,
		))
	}

	return strings.Join(parts, ","), nil
}

// escapeDrawtext escapes the characters ffmpeg's filter parser treats
// specially inside drawtext text values.
func escapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "'", "'\\''")
	text = strings.ReplaceAll(text, ":", "\\:")
	return text
}
