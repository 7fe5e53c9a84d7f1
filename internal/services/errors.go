package services

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error taxonomy
//
// Scene-local failures (DurationUnavailableError, RenderError,
// ToolMissingError) are caught at the scene boundary: the scene is excluded
// and the job continues. ConcatError and ErrNoContent are job-fatal — no
// partial final video is ever produced.
// ---------------------------------------------------------------------------

// ErrNoContent means zero scenes produced a usable segment. Job-fatal.
var ErrNoContent = errors.New("no scene segments were produced")

// DurationUnavailableError means the media probe could not report a duration
// for an asset: the file is missing, corrupt, or the probe found no duration.
type DurationUnavailableError struct {
	Path string
	Err  error
}

func (e *DurationUnavailableError) Error() string {
	return fmt.Sprintf("duration unavailable for %s: %v", e.Path, e.Err)
}

func (e *DurationUnavailableError) Unwrap() error { return e.Err }

// RenderError means an external render invocation exited non-zero. Output
// carries the tool's diagnostic stderr for the repair loop.
type RenderError struct {
	SceneIndex int
	Output     string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for scene %d: %v", e.SceneIndex, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ToolMissingError means a required external binary is not installed.
// Non-repairable: repair cannot fix an absent toolchain, so the caller skips
// the scene immediately without burning repair attempts.
type ToolMissingError struct {
	Tool string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("required tool %q not found in PATH", e.Tool)
}

// ConcatError means final concatenation failed: the manifest is missing or
// empty, or the concat invocation exited non-zero. Job-fatal.
type ConcatError struct {
	Output string
	Err    error
}

func (e *ConcatError) Error() string {
	return fmt.Sprintf("concatenation failed: %v", e.Err)
}

func (e *ConcatError) Unwrap() error { return e.Err }
