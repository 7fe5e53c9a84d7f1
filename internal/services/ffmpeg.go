package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kavinb/docshorts/internal/models"
)

// Output constants — portrait 1080x1920 at 30fps.
const (
	outputWidth  = 1080
	outputHeight = 1920
	videoFPS     = 30

	// Global fade envelope, applied once at final assembly.
	fadeInDuration  = 1.0
	fadeOutDuration = 0.5

	// Watermark placement: centered horizontally with fixed top padding.
	watermarkPaddingTop = 30
)

// ---------------------------------------------------------------------------
// FFmpegService
//
// Every pixel and every duration flows through two external tools: ffmpeg
// for rendering/concatenation and ffprobe for media probing. All invocations
// are argument vectors — no shell, no string interpolation of user text into
// a command line.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	ffmpegBin  string
	ffprobeBin string

	watermarkPath  string // composited when the file exists; empty = none
	subtitleAnchor string // top, center, or bottom
}

func NewFFmpegService(watermarkPath, subtitleAnchor string) *FFmpegService {
	return &FFmpegService{
		ffmpegBin:      "ffmpeg",
		ffprobeBin:     "ffprobe",
		watermarkPath:  watermarkPath,
		subtitleAnchor: subtitleAnchor,
	}
}

// run executes a tool with captured stderr. A missing binary surfaces as
// ToolMissingError; any other non-zero exit returns the raw error plus the
// captured diagnostics.
func (s *FFmpegService) run(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return stderr.String(), &ToolMissingError{Tool: bin}
		}
		return stderr.String(), err
	}
	return stderr.String(), nil
}

// ResolveDuration returns the playback duration of a media asset in seconds.
// Missing, corrupt, or duration-less assets yield DurationUnavailableError —
// fatal for that scene, never for the job.
func (s *FFmpegService) ResolveDuration(ctx context.Context, assetPath string) (float64, error) {
	if _, err := os.Stat(assetPath); err != nil {
		return 0, &DurationUnavailableError{Path: assetPath, Err: err}
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		assetPath,
	}

	cmd := exec.CommandContext(ctx, s.ffprobeBin, args...)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, &ToolMissingError{Tool: s.ffprobeBin}
		}
		return 0, &DurationUnavailableError{Path: assetPath, Err: err}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, &DurationUnavailableError{Path: assetPath, Err: fmt.Errorf("unparsable probe output %q", strings.TrimSpace(string(output)))}
	}
	if duration <= 0 {
		return 0, &DurationUnavailableError{Path: assetPath, Err: fmt.Errorf("probe reported no duration")}
	}

	return duration, nil
}

// FitGeometry computes the uniform scale-to-fit placement of a srcW×srcH
// image inside a dstW×dstH frame: scale by min(widthRatio, heightRatio),
// never crop, never stretch, center the result.
func FitGeometry(srcW, srcH, dstW, dstH int) (scaledW, scaledH, padX, padY int) {
	widthRatio := float64(dstW) / float64(srcW)
	heightRatio := float64(dstH) / float64(srcH)
	scale := math.Min(widthRatio, heightRatio)

	scaledW = int(float64(srcW) * scale)
	scaledH = int(float64(srcH) * scale)
	padX = (dstW - scaledW) / 2
	padY = (dstH - scaledH) / 2
	return
}

// probeDimensions returns the pixel width and height of an image or video.
func (s *FFmpegService) probeDimensions(ctx context.Context, path string) (int, int, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x",
		path,
	}

	cmd := exec.CommandContext(ctx, s.ffprobeBin, args...)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, 0, &ToolMissingError{Tool: s.ffprobeBin}
		}
		return 0, 0, fmt.Errorf("ffprobe dimensions failed for %s: %w", path, err)
	}

	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("failed to parse dimensions %q: %w", strings.TrimSpace(string(output)), err)
	}
	return w, h, nil
}

// NormalizeImage scales a still image to fit the canonical portrait frame
// and center-pads the remainder with solid black. The source is left
// untouched; the normalized copy is written to outputPath.
func (s *FFmpegService) NormalizeImage(ctx context.Context, inputPath, outputPath string) error {
	srcW, srcH, err := s.probeDimensions(ctx, inputPath)
	if err != nil {
		return err
	}

	scaledW, scaledH, padX, padY := FitGeometry(srcW, srcH, outputWidth, outputHeight)

	vf := fmt.Sprintf("scale=%d:%d,pad=%d:%d:%d:%d:black",
		scaledW, scaledH, outputWidth, outputHeight, padX, padY)

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", vf,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}

	if stderr, err := s.run(ctx, s.ffmpegBin, args); err != nil {
		var tm *ToolMissingError
		if errors.As(err, &tm) {
			return err
		}
		return fmt.Errorf("ffmpeg normalize failed for %s: %w (%s)", inputPath, err, lastLine(stderr))
	}
	return nil
}

// RenderScene combines one normalized still image, one audio asset, and the
// scene's caption overlay into a fixed-duration segment. The segment's
// duration is locked to the measured audio duration; captions are enabled on
// the segment's own clock (t=0 at segment start). No fade is applied here —
// the global envelope is applied exactly once, at assembly.
func (s *FFmpegService) RenderScene(ctx context.Context, visual models.VisualAsset, audio models.AudioAsset, cue models.CaptionCue, outputPath string) (*models.SceneSegment, error) {
	captionFilter, err := buildCaptionFilter(cue.Lines, audio.MeasuredDuration, s.subtitleAnchor)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-y",
		"-loop", "1",
		"-t", strconv.FormatFloat(audio.MeasuredDuration, 'f', 3, 64),
		"-i", visual.FilePath,
		"-i", audio.FilePath,
	}

	if s.watermarkExists() {
		args = append(args, "-i", s.watermarkPath,
			"-filter_complex",
			fmt.Sprintf("[0][2]overlay=(W-w)/2:%d[bg];[bg]%s", watermarkPaddingTop, captionFilter))
	} else {
		args = append(args, "-filter_complex", captionFilter)
	}

	args = append(args,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-avoid_negative_ts", "make_zero",
		"-r", strconv.Itoa(videoFPS),
		outputPath,
	)

	if stderr, err := s.run(ctx, s.ffmpegBin, args); err != nil {
		var tm *ToolMissingError
		if errors.As(err, &tm) {
			return nil, err
		}
		return nil, &RenderError{SceneIndex: visual.SceneIndex, Output: stderr, Err: err}
	}

	return &models.SceneSegment{
		SceneIndex: visual.SceneIndex,
		FilePath:   outputPath,
		Duration:   audio.MeasuredDuration,
	}, nil
}

// watermarkExists reports whether a watermark should be composited. A
// configured-but-missing file is treated as "no watermark", matching the
// optional nature of the asset.
func (s *FFmpegService) watermarkExists() bool {
	if s.watermarkPath == "" {
		return false
	}
	_, err := os.Stat(s.watermarkPath)
	return err == nil
}

// WriteManifest writes the concat manifest: one absolute segment path per
// line in the ffmpeg concat format, in the given (ascending scene) order.
func WriteManifest(segments []models.SceneSegment, manifestPath string) error {
	var sb strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg.FilePath)
		if err != nil {
			return fmt.Errorf("failed to resolve segment path %s: %w", seg.FilePath, err)
		}
		sb.WriteString(fmt.Sprintf("file '%s'\n", abs))
	}

	if err := os.WriteFile(manifestPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	return nil
}

// Assemble concatenates the scene segments, in the order given, into the
// final video. Segments must already be in ascending scene-index order;
// gaps from skipped scenes are fine. The concat re-encodes (uniform codec
// and pixel format across heterogeneous sources) and applies the single
// global fade envelope: 1s in at t=0, 0.5s out starting at total−0.5.
// On success every intermediate segment and the manifest are deleted.
func (s *FFmpegService) Assemble(ctx context.Context, segments []models.SceneSegment, manifestPath, outputPath string) (float64, error) {
	if len(segments) == 0 {
		return 0, ErrNoContent
	}

	if err := WriteManifest(segments, manifestPath); err != nil {
		return 0, &ConcatError{Err: err}
	}

	// The manifest drives the whole concat; refuse to proceed on a missing
	// or empty one rather than letting ffmpeg produce an empty output.
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return 0, &ConcatError{Err: fmt.Errorf("concat manifest missing: %w", err)}
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return 0, &ConcatError{Err: fmt.Errorf("concat manifest is empty")}
	}

	total := 0.0
	for _, seg := range segments {
		total += seg.Duration
	}

	fadeOutStart := math.Max(total-fadeOutDuration, 0)
	filter := fmt.Sprintf("[0:v]fade=t=in:st=0:d=%g,fade=t=out:st=%.3f:d=%g[v]",
		fadeInDuration, fadeOutStart, fadeOutDuration)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		outputPath,
	}

	if stderr, err := s.run(ctx, s.ffmpegBin, args); err != nil {
		return 0, &ConcatError{Output: stderr, Err: err}
	}

	// Intermediates are consumed: delete segments and the manifest. Deletion
	// failures are logged, never fatal.
	for _, seg := range segments {
		if err := os.Remove(seg.FilePath); err != nil {
			log.Printf("[FFmpeg] could not delete segment %s: %v", seg.FilePath, err)
		}
	}
	if err := os.Remove(manifestPath); err != nil {
		log.Printf("[FFmpeg] could not delete concat manifest %s: %v", manifestPath, err)
	}

	return total, nil
}

// Cleanup removes temporary files, ignoring errors.
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

// lastLine returns the final non-empty line of tool output — usually the
// actual error message in a wall of ffmpeg diagnostics.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
