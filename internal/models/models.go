package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums

// SourceType identifies what kind of content a generation request carries.
// The type is explicit — never auto-detected from the content string.
type SourceType string

const (
	SourceTopic SourceType = "topic" // free-text topic prompt
	SourceURL   SourceType = "url"   // web page to crawl
	SourcePDF   SourceType = "pdf"   // filesystem path to a PDF
)

// PipelineMode selects which generation pipeline a job runs.
type PipelineMode string

const (
	// ModeDocument: script → images + TTS → caption-burned scene segments.
	ModeDocument PipelineMode = "document"
	// ModeAnimation: outline → Manim programs → rendered animation clips.
	ModeAnimation PipelineMode = "animation"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// SceneState tracks a scene through the render (and, on the animation path,
// repair) cycle. FAILED transitions back to RENDERING via REPAIRING until the
// attempt budget is exhausted, then the scene lands in SKIPPED.
type SceneState string

const (
	SceneGenerated SceneState = "generated"
	SceneRendering SceneState = "rendering"
	SceneRepairing SceneState = "repairing"
	SceneSucceeded SceneState = "succeeded"
	SceneFailed    SceneState = "failed"
	SceneSkipped   SceneState = "skipped"
)

// Models

// Scene is one narrated unit of the script: 1-based index, narration text,
// a visual directive (image prompt or animation instructions), and the
// script generator's duration hint. Immutable once the script step emits
// it; every downstream stage keys on Index.
type Scene struct {
	Index           int    `json:"scene_number"`
	Text            string `json:"text"`
	VisualDirective string `json:"image_prompt"`
	TargetDuration  int    `json:"timeframe"` // seconds, hint only
}

// AudioAsset is a rendered narration file. MeasuredDuration comes from the
// duration resolver and is authoritative over Scene.TargetDuration for all
// downstream timing.
type AudioAsset struct {
	SceneIndex       int
	FilePath         string
	MeasuredDuration float64 // seconds
}

// VisualAsset is either a still image normalized to the output frame or a
// rendered animation clip. Exactly one exists per successfully processed
// scene; scenes missing one are excluded from assembly, not zero-filled.
type VisualAsset struct {
	SceneIndex int
	FilePath   string
}

// CaptionCue is a subtitle cue on the global, gapless timeline:
// Start of cue i+1 always equals End of cue i.
type CaptionCue struct {
	SceneIndex int
	Lines      []string // wrapped caption lines
	Start      float64  // seconds
	End        float64  // seconds
}

// SceneSegment is one scene's rendered, fixed-duration micro-video.
// Ephemeral: created by the scene render job, consumed and deleted by the
// sequence assembler.
type SceneSegment struct {
	SceneIndex int
	FilePath   string
	Duration   float64 // seconds
}

// Job is the persisted record of one generation request.
type Job struct {
	ID           uuid.UUID    `json:"id"`
	Mode         PipelineMode `json:"mode"`
	SourceType   SourceType   `json:"source_type"`
	Source       string       `json:"source"`
	VideoName    string       `json:"video_name"`
	Status       JobStatus    `json:"status"`
	SceneCount   int          `json:"scene_count"`
	SkippedCount int          `json:"skipped_count"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Video is the terminal artifact record — never mutated after creation.
type Video struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	Name      string    `json:"name"`
	FilePath  string    `json:"file_path"`
	Duration  float64   `json:"duration_seconds"`
	CreatedAt time.Time `json:"created_at"`
}

// DTOs

type CreateVideoRequest struct {
	Mode       PipelineMode `json:"mode"`        // default: document
	SourceType SourceType   `json:"source_type"` // required for document mode
	Source     string       `json:"source"`      // topic text, URL, or PDF path
	Prompt     string       `json:"prompt"`      // concept for animation mode
	VideoName  string       `json:"video_name"`  // default: generated_video
}

type CreateVideoResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

type ListVideosResponse struct {
	Videos []Video `json:"videos"`
	Total  int     `json:"total"`
}
