package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kavinb/docshorts/internal/db"
	"github.com/kavinb/docshorts/internal/models"
	"github.com/kavinb/docshorts/internal/queue"
	"github.com/kavinb/docshorts/internal/services"
	"github.com/kavinb/docshorts/internal/workspace"
)

// store is the slice of the database the worker writes to. *db.DB satisfies
// it; tests substitute a fake.
type store interface {
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateJobError(ctx context.Context, id uuid.UUID, message string) error
	UpdateJobCounts(ctx context.Context, id uuid.UUID, sceneCount, skippedCount int) error
	CreateVideo(ctx context.Context, video *models.Video) error
}

type Worker struct {
	db      store
	queue   *queue.Queue
	extract *services.ExtractService
	openai  *services.OpenAIService
	gemini  *services.GeminiService
	agents  *services.AgentService
	tts     services.TTSService
	ffmpeg  *services.FFmpegService
	manim   *services.ManimService

	workRoot  string
	outputDir string
}

func New(
	database *db.DB,
	q *queue.Queue,
	extractSvc *services.ExtractService,
	openaiSvc *services.OpenAIService,
	geminiSvc *services.GeminiService,
	agentSvc *services.AgentService,
	ttsSvc services.TTSService,
	ffmpegSvc *services.FFmpegService,
	manimSvc *services.ManimService,
	workRoot, outputDir string,
) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		extract:   extractSvc,
		openai:    openaiSvc,
		gemini:    geminiSvc,
		agents:    agentSvc,
		tts:       ttsSvc,
		ffmpeg:    ffmpegSvc,
		manim:     manimSvc,
		workRoot:  workRoot,
		outputDir: outputDir,
	}
}

// Start begins processing generation jobs. Each goroutine handles one job
// at a time, end to end — scenes within a job render strictly serially, but
// independent jobs may run in parallel up to concurrency.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (mode: %s)", job.ID, job.Mode)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			w.recordOutcome(ctx, job.ID, w.handleGenerateVideo(ctx, job))
		}
	}
}

// recordOutcome persists a job's terminal status. Write failures are logged
// rather than swallowed — a job that ran but could not be marked stays
// visible in the logs.
func (w *Worker) recordOutcome(ctx context.Context, jobID uuid.UUID, runErr error) {
	if runErr != nil {
		log.Printf("Job %s failed: %v", jobID, runErr)
		if err := w.db.UpdateJobError(ctx, jobID, runErr.Error()); err != nil {
			log.Printf("Failed to record job error for %s: %v", jobID, err)
		}
		return
	}

	log.Printf("Job %s completed successfully", jobID)
	if err := w.db.UpdateJobStatus(ctx, jobID, models.JobStatusSucceeded); err != nil {
		log.Printf("Failed to update job status for %s: %v", jobID, err)
	}
}

func (w *Worker) handleGenerateVideo(ctx context.Context, job *queue.Job) error {
	ws, err := workspace.New(w.workRoot, w.outputDir, job.ID)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	defer ws.Cleanup()

	switch job.Mode {
	case models.ModeAnimation:
		return w.runAnimationJob(ctx, job, ws)
	default:
		return w.runDocumentJob(ctx, job, ws)
	}
}

// sceneAssets holds the per-scene generation results from the fan-out
// stage. A scene missing either asset is excluded downstream, never
// zero-filled.
type sceneAssets struct {
	Scene  models.Scene
	Visual *models.VisualAsset
	Audio  *models.AudioAsset
}

// Renderable reports whether the scene produced both assets it needs.
func (a sceneAssets) Renderable() bool {
	return a.Visual != nil && a.Audio != nil
}

// ---------------------------------------------------------------------------
// Document pipeline: extract → script → per-scene assets → segments → final
// ---------------------------------------------------------------------------

func (w *Worker) runDocumentJob(ctx context.Context, job *queue.Job, ws *workspace.Workspace) error {
	content, err := w.extract.Extract(ctx, job.SourceType, job.Source)
	if err != nil {
		return fmt.Errorf("content extraction failed: %w", err)
	}

	script, err := w.openai.GenerateScript(ctx, content, job.Prompt)
	if err != nil {
		return fmt.Errorf("script generation failed: %w", err)
	}

	// Image and audio for each scene are independent: fan out with one
	// goroutine pair per scene. A scene-local failure nils that scene's
	// asset and the job moves on — only a total wipeout is fatal.
	assets := w.generateSceneAssets(ctx, script.Scenes, ws)

	segments, skipped := w.renderSegments(ctx, assets, ws)

	if err := w.writeSubtitles(assets, segments, ws.SubtitlePath); err != nil {
		log.Printf("[Worker] subtitle artifact failed (continuing): %v", err)
	}

	return w.finishJob(ctx, job, ws, segments, len(script.Scenes), skipped)
}

// generateSceneAssets runs the per-scene image+audio fan-out. Results come
// back in the same ascending scene order as the input.
func (w *Worker) generateSceneAssets(ctx context.Context, scenes []models.Scene, ws *workspace.Workspace) []sceneAssets {
	assets := make([]sceneAssets, len(scenes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	for i, scene := range scenes {
		i, scene := i, scene
		assets[i].Scene = scene

		g.Go(func() error {
			imagePath := ws.ImagePath(scene.Index)
			if err := w.gemini.GenerateImageToFile(gctx, scene.VisualDirective, imagePath); err != nil {
				log.Printf("[Worker] scene %d image failed: %v", scene.Index, err)
				return nil
			}
			mu.Lock()
			assets[i].Visual = &models.VisualAsset{SceneIndex: scene.Index, FilePath: imagePath}
			mu.Unlock()
			return nil
		})

		g.Go(func() error {
			narration := services.SanitizeNarration(scene.Text)
			if narration == "" {
				log.Printf("[Worker] scene %d narration empty after sanitization", scene.Index)
				return nil
			}

			speech, err := w.tts.GenerateSpeech(gctx, narration)
			if err != nil {
				log.Printf("[Worker] scene %d TTS failed: %v", scene.Index, err)
				return nil
			}

			audioPath := ws.AudioPath(scene.Index)
			if err := os.WriteFile(audioPath, speech.AudioData, 0644); err != nil {
				log.Printf("[Worker] scene %d audio write failed: %v", scene.Index, err)
				return nil
			}

			// The probed duration is authoritative — a provider estimate or
			// the script's timeframe hint never drives timing.
			duration, err := w.ffmpeg.ResolveDuration(gctx, audioPath)
			if err != nil {
				log.Printf("[Worker] scene %d duration probe failed: %v", scene.Index, err)
				return nil
			}

			mu.Lock()
			assets[i].Audio = &models.AudioAsset{
				SceneIndex:       scene.Index,
				FilePath:         audioPath,
				MeasuredDuration: duration,
			}
			mu.Unlock()
			return nil
		})
	}

	// Goroutines only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	return assets
}

// renderSegments normalizes and renders each renderable scene strictly in
// order. Failures skip the scene; the returned segments preserve ascending
// scene order with gaps where scenes dropped out.
func (w *Worker) renderSegments(ctx context.Context, assets []sceneAssets, ws *workspace.Workspace) ([]models.SceneSegment, int) {
	var segments []models.SceneSegment
	skipped := 0

	for _, a := range assets {
		if !a.Renderable() {
			skipped++
			continue
		}

		processedPath := ws.ProcessedImagePath(a.Scene.Index)
		if err := w.ffmpeg.NormalizeImage(ctx, a.Visual.FilePath, processedPath); err != nil {
			log.Printf("[Worker] scene %d normalize failed, skipping: %v", a.Scene.Index, err)
			skipped++
			continue
		}

		cue := models.CaptionCue{
			SceneIndex: a.Scene.Index,
			Lines:      services.WrapCaption(services.SanitizeNarration(a.Scene.Text), services.CaptionMaxWidth, services.CaptionFontSize),
		}

		normalized := models.VisualAsset{SceneIndex: a.Scene.Index, FilePath: processedPath}
		segment, err := w.ffmpeg.RenderScene(ctx, normalized, *a.Audio, cue, ws.SegmentPath(a.Scene.Index))
		if err != nil {
			log.Printf("[Worker] scene %d render failed, skipping: %v", a.Scene.Index, err)
			skipped++
			continue
		}

		segments = append(segments, *segment)
	}

	return segments, skipped
}

// writeSubtitles builds the gapless cue timeline from the scenes that made
// it into the final cut and writes the SRT artifact next to the scratch
// files before the output is assembled.
func (w *Worker) writeSubtitles(assets []sceneAssets, segments []models.SceneSegment, path string) error {
	rendered := make(map[int]bool, len(segments))
	for _, seg := range segments {
		rendered[seg.SceneIndex] = true
	}

	var entries []services.TimelineEntry
	for _, a := range assets {
		if !rendered[a.Scene.Index] || a.Audio == nil {
			continue
		}
		entries = append(entries, services.TimelineEntry{
			SceneIndex: a.Scene.Index,
			Text:       services.SanitizeNarration(a.Scene.Text),
			Duration:   a.Audio.MeasuredDuration,
		})
	}

	cues := services.BuildTimeline(entries)
	return services.WriteSRT(cues, path)
}

// ---------------------------------------------------------------------------
// Animation pipeline: outline → programs → render-and-repair → final
// ---------------------------------------------------------------------------

func (w *Worker) runAnimationJob(ctx context.Context, job *queue.Job, ws *workspace.Workspace) error {
	prompt := job.Prompt
	if prompt == "" {
		prompt = job.Source
	}
	if prompt == "" {
		return fmt.Errorf("animation job has no prompt")
	}

	outline, err := w.agents.GenerateOutline(ctx, prompt)
	if err != nil {
		return fmt.Errorf("outline generation failed: %w", err)
	}

	loop := &services.RepairLoop{
		Render: func(ctx context.Context, program string, sceneIndex int) (string, error) {
			return w.manim.RenderProgram(ctx, program, sceneIndex, ws.Root)
		},
		Repairer:    w.agents,
		MaxAttempts: services.DefaultMaxRenderAttempts,
	}

	var segments []models.SceneSegment
	skipped := 0

	for i, chapter := range outline.Chapters {
		sceneIndex := i + 1

		program, err := w.agents.GenerateProgram(ctx, chapter)
		if err != nil {
			log.Printf("[Worker] chapter %d program generation failed, skipping: %v", sceneIndex, err)
			skipped++
			continue
		}

		clipPath, state := loop.Run(ctx, program, sceneIndex)
		if state != models.SceneSucceeded {
			skipped++
			continue
		}

		duration, err := w.ffmpeg.ResolveDuration(ctx, clipPath)
		if err != nil {
			log.Printf("[Worker] chapter %d clip unprobeable, skipping: %v", sceneIndex, err)
			skipped++
			continue
		}

		segments = append(segments, models.SceneSegment{
			SceneIndex: sceneIndex,
			FilePath:   clipPath,
			Duration:   duration,
		})
	}

	return w.finishJob(ctx, job, ws, segments, len(outline.Chapters), skipped)
}

// finishJob assembles the surviving segments into the final video and
// records the outcome. Zero segments is job-fatal — no empty video is ever
// written.
func (w *Worker) finishJob(ctx context.Context, job *queue.Job, ws *workspace.Workspace, segments []models.SceneSegment, sceneCount, skipped int) error {
	if err := w.db.UpdateJobCounts(ctx, job.ID, sceneCount, skipped); err != nil {
		log.Printf("[Worker] failed to record scene counts: %v", err)
	}

	outputPath := ws.OutputPath(job.VideoName)
	total, err := w.ffmpeg.Assemble(ctx, segments, ws.ManifestPath, outputPath)
	if err != nil {
		if errors.Is(err, services.ErrNoContent) {
			return fmt.Errorf("all %d scenes failed: %w", sceneCount, err)
		}
		return fmt.Errorf("assembly failed: %w", err)
	}

	video := &models.Video{
		ID:       uuid.New(),
		JobID:    job.ID,
		Name:     workspace.SanitizeVideoName(job.VideoName),
		FilePath: outputPath,
		Duration: total,
	}
	if err := w.db.CreateVideo(ctx, video); err != nil {
		return fmt.Errorf("failed to record video: %w", err)
	}

	log.Printf("[Worker] job %s: %s assembled (%.1fs, %d/%d scenes, %d skipped)",
		job.ID, video.Name, total, sceneCount-skipped, sceneCount, skipped)
	return nil
}
