package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Workspace — per-job scratch layout
//
// Every job gets a distinct directory keyed by its ID, so concurrent jobs
// never collide on intermediate files. Finished videos land in the shared
// output directory; everything else is scratch and is removed when the job
// finishes.
// ---------------------------------------------------------------------------

type Workspace struct {
	JobID uuid.UUID

	Root         string // scratch root for this job
	ImagesDir    string // raw generated images
	ProcessedDir string // normalized (scaled + padded) images
	AudiosDir    string // per-scene narration audio
	SegmentsDir  string // per-scene rendered segments

	SubtitlePath string // SRT artifact
	ManifestPath string // concat manifest

	outputDir string // shared directory for finished videos
}

// New creates the scratch layout for one job under workRoot and ensures the
// shared output directory exists.
func New(workRoot, outputDir string, jobID uuid.UUID) (*Workspace, error) {
	root := filepath.Join(workRoot, jobID.String())

	ws := &Workspace{
		JobID:        jobID,
		Root:         root,
		ImagesDir:    filepath.Join(root, "images"),
		ProcessedDir: filepath.Join(root, "images_processed"),
		AudiosDir:    filepath.Join(root, "audios"),
		SegmentsDir:  filepath.Join(root, "segments"),
		SubtitlePath: filepath.Join(root, "subtitles.srt"),
		ManifestPath: filepath.Join(root, "concat_list.txt"),
		outputDir:    outputDir,
	}

	for _, dir := range []string{ws.ImagesDir, ws.ProcessedDir, ws.AudiosDir, ws.SegmentsDir, outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return ws, nil
}

// ImagePath is the raw generated image for a scene.
func (w *Workspace) ImagePath(sceneIndex int) string {
	return filepath.Join(w.ImagesDir, fmt.Sprintf("image%d.jpg", sceneIndex))
}

// ProcessedImagePath is the normalized image for a scene.
func (w *Workspace) ProcessedImagePath(sceneIndex int) string {
	return filepath.Join(w.ProcessedDir, fmt.Sprintf("image%d.jpg", sceneIndex))
}

// AudioPath is the narration audio for a scene.
func (w *Workspace) AudioPath(sceneIndex int) string {
	return filepath.Join(w.AudiosDir, fmt.Sprintf("scene%d.mp3", sceneIndex))
}

// SegmentPath is the rendered micro-video for a scene.
func (w *Workspace) SegmentPath(sceneIndex int) string {
	return filepath.Join(w.SegmentsDir, fmt.Sprintf("temp_scene_%d.mp4", sceneIndex))
}

// OutputPath is the final video location in the shared output directory.
// The name is sanitized to a bare filename — no directory traversal.
func (w *Workspace) OutputPath(videoName string) string {
	return filepath.Join(w.outputDir, SanitizeVideoName(videoName)+".mp4")
}

// Cleanup removes the job's entire scratch tree. Failures are logged, never
// fatal — a leftover scratch dir costs disk, not correctness.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.Root); err != nil {
		log.Printf("[Workspace] could not remove %s: %v", w.Root, err)
	}
}

// SanitizeVideoName reduces a requested video name to a safe bare filename:
// path separators and dots are stripped, empty names fall back to the
// default.
func SanitizeVideoName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".mp4")
	name = strings.ReplaceAll(name, "..", "")
	name = strings.Trim(name, ". ")
	if name == "" || name == "/" {
		return "generated_video"
	}
	return name
}

// OutputFile resolves a finished video by name inside outputDir, refusing
// anything that escapes the directory. Returns the absolute path or an
// error when the file does not exist.
func OutputFile(outputDir, name string) (string, error) {
	base := SanitizeVideoName(name)
	path := filepath.Join(outputDir, base+".mp4")

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("video %q not found: %w", base, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("video %q not found", base)
	}
	return path, nil
}
