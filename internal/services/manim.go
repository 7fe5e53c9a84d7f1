package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kavinb/docshorts/internal/models"
)

// DefaultMaxRenderAttempts bounds the render-and-repair cycle per scene.
const DefaultMaxRenderAttempts = 2

// sceneClassPattern extracts the Scene subclass name from a generated
// program; manim names the rendered clip after it.
var sceneClassPattern = regexp.MustCompile(`class\s+(\w+)\(Scene\)`)

// ---------------------------------------------------------------------------
// ManimService — renders generated animation programs via the manim CLI.
// ---------------------------------------------------------------------------

type ManimService struct {
	bin     string
	timeout time.Duration
}

func NewManimService(bin string, timeout time.Duration) *ManimService {
	if bin == "" {
		bin = "manim"
	}
	return &ManimService{bin: bin, timeout: timeout}
}

// RenderProgram writes the program to disk and renders it at low quality.
// The render runs under a fixed wall-clock bound; on expiry the subprocess
// is killed and the failure is reported with a synthetic, repairable error
// message. A missing manim binary is ToolMissingError — non-repairable.
func (s *ManimService) RenderProgram(ctx context.Context, program string, sceneIndex int, workDir string) (string, error) {
	className := ExtractSceneClass(program)
	if className == "" {
		return "", &RenderError{
			SceneIndex: sceneIndex,
			Output:     "no `class <Name>(Scene)` definition found in program",
			Err:        fmt.Errorf("program defines no Scene class"),
		}
	}

	stem := fmt.Sprintf("scene%d", sceneIndex)
	programPath := filepath.Join(workDir, stem+".py")
	if err := os.WriteFile(programPath, []byte(program), 0644); err != nil {
		return "", fmt.Errorf("failed to write animation program: %w", err)
	}

	mediaDir := filepath.Join(workDir, "media")

	renderCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{programPath, "-ql", "--disable_caching", "--media_dir", mediaDir}
	cmd := exec.CommandContext(renderCtx, s.bin, args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &ToolMissingError{Tool: s.bin}
		}
		if renderCtx.Err() == context.DeadlineExceeded {
			// Synthetic message: the repair agent sees a timeout, not a
			// truncated stack trace.
			return "", &RenderError{
				SceneIndex: sceneIndex,
				Output:     fmt.Sprintf("manim render timed out after %s", s.timeout),
				Err:        fmt.Errorf("render timed out"),
			}
		}
		return "", &RenderError{SceneIndex: sceneIndex, Output: output.String(), Err: err}
	}

	// Manim places low-quality renders under <media>/videos/<stem>/480p15.
	clipPath := filepath.Join(mediaDir, "videos", stem, "480p15", className+".mp4")
	if _, statErr := os.Stat(clipPath); statErr != nil {
		return "", &RenderError{
			SceneIndex: sceneIndex,
			Output:     output.String(),
			Err:        fmt.Errorf("render produced no clip at %s", clipPath),
		}
	}

	return clipPath, nil
}

// ExtractSceneClass returns the first Scene subclass name in a program, or
// "" when none is defined.
func ExtractSceneClass(program string) string {
	match := sceneClassPattern.FindStringSubmatch(program)
	if match == nil {
		return ""
	}
	return match[1]
}

// ---------------------------------------------------------------------------
// Render-and-repair loop
//
// GENERATED → RENDERING → {SUCCEEDED, FAILED}; FAILED → REPAIRING →
// RENDERING, bounded by MaxAttempts; terminal SKIPPED after exhaustion.
// ToolMissingError short-circuits to SKIPPED — repair cannot install an
// absent toolchain.
// ---------------------------------------------------------------------------

// Repairer revises a failing program given the renderer's diagnostics.
type Repairer interface {
	Repair(ctx context.Context, errText, program string) (string, error)
}

// RepairerFunc adapts a function to the Repairer interface (handy for
// testing the loop with a stub).
type RepairerFunc func(ctx context.Context, errText, program string) (string, error)

func (f RepairerFunc) Repair(ctx context.Context, errText, program string) (string, error) {
	return f(ctx, errText, program)
}

// RenderFunc renders one program attempt and returns the clip path.
type RenderFunc func(ctx context.Context, program string, sceneIndex int) (string, error)

// RepairLoop drives bounded render attempts with repair feedback between
// them. Render and Repairer are injected so the loop is testable without a
// toolchain or an LLM.
type RepairLoop struct {
	Render      RenderFunc
	Repairer    Repairer
	MaxAttempts int
}

// Run attempts to render the program, feeding failures back through the
// repairer. Returns the clip path and SceneSucceeded, or "" and
// SceneSkipped. A skipped scene never aborts the job.
func (l *RepairLoop) Run(ctx context.Context, program string, sceneIndex int) (string, models.SceneState) {
	maxAttempts := l.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxRenderAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		clipPath, err := l.Render(ctx, program, sceneIndex)
		if err == nil {
			return clipPath, models.SceneSucceeded
		}

		var toolMissing *ToolMissingError
		if errors.As(err, &toolMissing) {
			log.Printf("[Repair] scene %d: %v, not repairable, skipping", sceneIndex, toolMissing)
			return "", models.SceneSkipped
		}

		log.Printf("[Repair] scene %d render attempt %d/%d failed: %v", sceneIndex, attempt, maxAttempts, err)

		if attempt == maxAttempts {
			break
		}

		revised, repairErr := l.Repairer.Repair(ctx, renderErrText(err), program)
		if repairErr != nil {
			log.Printf("[Repair] scene %d: repair step failed, skipping: %v", sceneIndex, repairErr)
			return "", models.SceneSkipped
		}
		program = revised
	}

	log.Printf("[Repair] scene %d: exhausted %d attempts, skipping", sceneIndex, maxAttempts)
	return "", models.SceneSkipped
}

// renderErrText builds the error text handed to the repairer: the render
// tool's own diagnostics when available, the error string otherwise.
func renderErrText(err error) string {
	var renderErr *RenderError
	if errors.As(err, &renderErr) && renderErr.Output != "" {
		return renderErr.Output
	}
	return err.Error()
}
