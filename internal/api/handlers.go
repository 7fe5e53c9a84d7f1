package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kavinb/docshorts/internal/models"
	"github.com/kavinb/docshorts/internal/queue"
	"github.com/kavinb/docshorts/internal/workspace"
)

// Store is the subset of database operations the API reads and writes.
// Satisfied by *db.DB.
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListVideos(ctx context.Context) ([]models.Video, error)
	GetVideoByName(ctx context.Context, name string) (*models.Video, error)
}

type Handler struct {
	db        Store
	queue     *queue.Queue
	outputDir string
}

func NewHandler(database Store, q *queue.Queue, outputDir string) *Handler {
	return &Handler{
		db:        database,
		queue:     q,
		outputDir: outputDir,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateVideo handles POST /v1/videos. Generation is asynchronous: the
// request is validated, persisted, and queued, and the job ID comes back
// with 202 Accepted.
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Defaults
	if req.Mode == "" {
		req.Mode = models.ModeDocument
	}
	if req.VideoName == "" {
		req.VideoName = "generated_video"
	}

	// Validate
	switch req.Mode {
	case models.ModeDocument:
		switch req.SourceType {
		case models.SourceTopic, models.SourceURL, models.SourcePDF:
		default:
			respondError(w, http.StatusBadRequest, "source_type must be topic, url, or pdf")
			return
		}
		if req.Source == "" {
			respondError(w, http.StatusBadRequest, "source is required")
			return
		}
	case models.ModeAnimation:
		if req.Prompt == "" && req.Source == "" {
			respondError(w, http.StatusBadRequest, "prompt is required for animation mode")
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "mode must be document or animation")
		return
	}

	job := &models.Job{
		ID:         uuid.New(),
		Mode:       req.Mode,
		SourceType: req.SourceType,
		Source:     req.Source,
		VideoName:  workspace.SanitizeVideoName(req.VideoName),
		Status:     models.JobStatusQueued,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		log.Printf("[API] create job failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.Enqueue(r.Context(), &queue.Job{
		ID:         job.ID,
		Mode:       job.Mode,
		SourceType: job.SourceType,
		Source:     job.Source,
		Prompt:     req.Prompt,
		VideoName:  job.VideoName,
	}); err != nil {
		log.Printf("[API] enqueue failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateVideoResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// ListVideos handles GET /v1/videos
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.db.ListVideos(r.Context())
	if err != nil {
		log.Printf("[API] list videos failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	respondJSON(w, http.StatusOK, models.ListVideosResponse{
		Videos: videos,
		Total:  len(videos),
	})
}

// DownloadVideo handles GET /v1/videos/{name}/download. The video record
// must exist, and the name is sanitized before touching the filesystem; a
// file that is gone from disk is a 404 regardless of what the database says.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	name := workspace.SanitizeVideoName(chi.URLParam(r, "name"))

	video, err := h.db.GetVideoByName(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	path, err := workspace.OutputFile(h.outputDir, video.Name)
	if err != nil {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+video.Name+`.mp4"`)
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
