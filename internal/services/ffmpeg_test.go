package services

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kavinb/docshorts/internal/models"
)

// stubProbe writes an executable that prints the given output, standing in
// for ffprobe so duration parsing is testable without media files.
func stubProbe(t *testing.T, dir, output string) string {
	t.Helper()
	path := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\necho '" + output + "'\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFitGeometrySquareIntoPortrait(t *testing.T) {
	w, h, padX, padY := FitGeometry(1000, 1000, 1080, 1920)
	if w != 1080 || h != 1080 {
		t.Errorf("expected 1080x1080, got %dx%d", w, h)
	}
	if padX != 0 || padY != 420 {
		t.Errorf("expected padding 0,420, got %d,%d", padX, padY)
	}
}

func TestFitGeometryLandscapeIntoPortrait(t *testing.T) {
	w, h, padX, padY := FitGeometry(1920, 1080, 1080, 1920)
	if w != 1080 || h != 607 {
		t.Errorf("expected 1080x607, got %dx%d", w, h)
	}
	if padX != 0 {
		t.Errorf("expected no horizontal padding, got %d", padX)
	}
	if padY != (1920-607)/2 {
		t.Errorf("expected vertical padding %d, got %d", (1920-607)/2, padY)
	}
}

func TestFitGeometryExactFit(t *testing.T) {
	w, h, padX, padY := FitGeometry(1080, 1920, 1080, 1920)
	if w != 1080 || h != 1920 || padX != 0 || padY != 0 {
		t.Errorf("exact-fit source must not scale or pad: %dx%d pad %d,%d", w, h, padX, padY)
	}
}

func TestFitGeometryNeverExceedsFrame(t *testing.T) {
	cases := [][2]int{{100, 5000}, {5000, 100}, {3840, 2160}, {720, 1280}}
	for _, c := range cases {
		w, h, padX, padY := FitGeometry(c[0], c[1], 1080, 1920)
		if w > 1080 || h > 1920 {
			t.Errorf("source %dx%d scaled to %dx%d exceeds frame", c[0], c[1], w, h)
		}
		if padX < 0 || padY < 0 {
			t.Errorf("source %dx%d produced negative padding %d,%d", c[0], c[1], padX, padY)
		}
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	segments := []models.SceneSegment{
		{SceneIndex: 1, FilePath: filepath.Join(dir, "temp_scene_1.mp4"), Duration: 4},
		{SceneIndex: 3, FilePath: filepath.Join(dir, "temp_scene_3.mp4"), Duration: 5},
	}

	manifestPath := filepath.Join(dir, "concat_list.txt")
	if err := WriteManifest(segments, manifestPath); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 manifest lines, got %d", len(lines))
	}

	// Ordering follows the segment slice, and each line is concat format.
	if !strings.Contains(lines[0], "temp_scene_1.mp4") || !strings.Contains(lines[1], "temp_scene_3.mp4") {
		t.Errorf("manifest order wrong:\n%s", string(data))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			t.Errorf("bad concat line: %q", line)
		}
		if !filepath.IsAbs(strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")) {
			t.Errorf("manifest paths must be absolute: %q", line)
		}
	}
}

func TestAssembleNoSegments(t *testing.T) {
	svc := NewFFmpegService("", "bottom")
	dir := t.TempDir()

	_, err := svc.Assemble(context.Background(), nil,
		filepath.Join(dir, "concat_list.txt"), filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("expected ErrNoContent, got %v", err)
	}
}

func TestWatermarkExists(t *testing.T) {
	svc := NewFFmpegService("", "bottom")
	if svc.watermarkExists() {
		t.Error("empty watermark path must mean no watermark")
	}

	svc = NewFFmpegService("/nonexistent/watermark.png", "bottom")
	if svc.watermarkExists() {
		t.Error("missing watermark file must mean no watermark")
	}

	path := filepath.Join(t.TempDir(), "watermark.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	svc = NewFFmpegService(path, "bottom")
	if !svc.watermarkExists() {
		t.Error("existing watermark file should enable compositing")
	}
}

func TestResolveDuration(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "scene1.mp3")
	if err := os.WriteFile(asset, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewFFmpegService("", "bottom")
	svc.ffprobeBin = stubProbe(t, dir, "4.250")

	got, err := svc.ResolveDuration(context.Background(), asset)
	if err != nil {
		t.Fatalf("ResolveDuration failed: %v", err)
	}
	if math.Abs(got-4.25) > 1e-9 {
		t.Errorf("duration = %v, want 4.25", got)
	}
}

func TestResolveDurationIdempotent(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "scene1.mp3")
	if err := os.WriteFile(asset, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewFFmpegService("", "bottom")
	svc.ffprobeBin = stubProbe(t, dir, "7.125")

	first, err := svc.ResolveDuration(context.Background(), asset)
	if err != nil {
		t.Fatalf("first probe failed: %v", err)
	}
	second, err := svc.ResolveDuration(context.Background(), asset)
	if err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if math.Abs(first-second) > 1e-9 {
		t.Errorf("probing an unmodified asset must be stable: %v != %v", first, second)
	}
}

func TestResolveDurationUnparsableOutput(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "scene1.mp3")
	if err := os.WriteFile(asset, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewFFmpegService("", "bottom")
	svc.ffprobeBin = stubProbe(t, dir, "N/A")

	_, err := svc.ResolveDuration(context.Background(), asset)
	var durErr *DurationUnavailableError
	if !errors.As(err, &durErr) {
		t.Fatalf("expected DurationUnavailableError for unparsable output, got %v", err)
	}
}

func TestResolveDurationNonPositive(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "scene1.mp3")
	if err := os.WriteFile(asset, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewFFmpegService("", "bottom")
	svc.ffprobeBin = stubProbe(t, dir, "0")

	_, err := svc.ResolveDuration(context.Background(), asset)
	var durErr *DurationUnavailableError
	if !errors.As(err, &durErr) {
		t.Fatalf("expected DurationUnavailableError for zero duration, got %v", err)
	}
}

func TestResolveDurationMissingFile(t *testing.T) {
	svc := NewFFmpegService("", "bottom")

	_, err := svc.ResolveDuration(context.Background(), "/nonexistent/audio.mp3")
	var durErr *DurationUnavailableError
	if !errors.As(err, &durErr) {
		t.Fatalf("expected DurationUnavailableError, got %v", err)
	}
	if durErr.Path != "/nonexistent/audio.mp3" {
		t.Errorf("error should carry the asset path, got %q", durErr.Path)
	}
}

func TestLastLine(t *testing.T) {
	out := "frame=  100\nframe=  200\n[error] something broke\n\n"
	if got := lastLine(out); got != "[error] something broke" {
		t.Errorf("lastLine = %q", got)
	}
	if got := lastLine(""); got != "" {
		t.Errorf("lastLine of empty = %q", got)
	}
}
