package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kavinb/docshorts/internal/models"
)

// fakeStore records which job writes the worker makes.
type fakeStore struct {
	statuses []models.JobStatus
	errMsgs  []string
	failWith error
}

func (f *fakeStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	f.statuses = append(f.statuses, status)
	return f.failWith
}

func (f *fakeStore) UpdateJobError(ctx context.Context, id uuid.UUID, message string) error {
	f.errMsgs = append(f.errMsgs, message)
	return f.failWith
}

func (f *fakeStore) UpdateJobCounts(ctx context.Context, id uuid.UUID, sceneCount, skippedCount int) error {
	return f.failWith
}

func (f *fakeStore) CreateVideo(ctx context.Context, video *models.Video) error {
	return f.failWith
}

func TestSceneAssetsRenderable(t *testing.T) {
	both := sceneAssets{
		Visual: &models.VisualAsset{SceneIndex: 1},
		Audio:  &models.AudioAsset{SceneIndex: 1},
	}
	if !both.Renderable() {
		t.Error("scene with both assets should be renderable")
	}

	noAudio := sceneAssets{Visual: &models.VisualAsset{SceneIndex: 1}}
	if noAudio.Renderable() {
		t.Error("scene missing audio must not be renderable")
	}

	noVisual := sceneAssets{Audio: &models.AudioAsset{SceneIndex: 1}}
	if noVisual.Renderable() {
		t.Error("scene missing visual must not be renderable")
	}
}

func TestRecordOutcomeSuccess(t *testing.T) {
	store := &fakeStore{}
	w := &Worker{db: store}

	w.recordOutcome(context.Background(), uuid.New(), nil)

	if len(store.errMsgs) != 0 {
		t.Errorf("successful job must not record an error, got %v", store.errMsgs)
	}
	if len(store.statuses) != 1 || store.statuses[0] != models.JobStatusSucceeded {
		t.Errorf("expected one succeeded status write, got %v", store.statuses)
	}
}

func TestRecordOutcomeFailure(t *testing.T) {
	store := &fakeStore{}
	w := &Worker{db: store}

	w.recordOutcome(context.Background(), uuid.New(), errors.New("script generation failed"))

	if len(store.statuses) != 0 {
		t.Errorf("failed job must not write a success status, got %v", store.statuses)
	}
	if len(store.errMsgs) != 1 || store.errMsgs[0] != "script generation failed" {
		t.Errorf("expected the run error to be recorded, got %v", store.errMsgs)
	}
}

func TestRecordOutcomeSurvivesStoreFailure(t *testing.T) {
	store := &fakeStore{failWith: errors.New("connection reset")}
	w := &Worker{db: store}

	// Both paths must tolerate a failed write — the loop keeps running.
	w.recordOutcome(context.Background(), uuid.New(), nil)
	w.recordOutcome(context.Background(), uuid.New(), errors.New("render failed"))

	if len(store.statuses) != 1 || len(store.errMsgs) != 1 {
		t.Errorf("both writes should have been attempted: statuses=%v errs=%v",
			store.statuses, store.errMsgs)
	}
}

func TestWriteSubtitlesSkipsUnrenderedScenes(t *testing.T) {
	assets := []sceneAssets{
		{
			Scene: models.Scene{Index: 1, Text: "First scene."},
			Audio: &models.AudioAsset{SceneIndex: 1, MeasuredDuration: 4.0},
		},
		{
			Scene: models.Scene{Index: 2, Text: "Dropped scene."},
			Audio: &models.AudioAsset{SceneIndex: 2, MeasuredDuration: 3.0},
		},
		{
			Scene: models.Scene{Index: 3, Text: "Third scene."},
			Audio: &models.AudioAsset{SceneIndex: 3, MeasuredDuration: 5.0},
		},
	}

	// Scene 2 failed to render; only 1 and 3 made the final cut.
	segments := []models.SceneSegment{
		{SceneIndex: 1, Duration: 4.0},
		{SceneIndex: 3, Duration: 5.0},
	}

	path := filepath.Join(t.TempDir(), "subtitles.srt")
	w := &Worker{}
	if err := w.writeSubtitles(assets, segments, path); err != nil {
		t.Fatalf("writeSubtitles failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if strings.Contains(content, "Dropped scene.") {
		t.Errorf("skipped scene leaked into SRT:\n%s", content)
	}
	// The timeline stays gapless: scene 3 starts where scene 1 ends.
	if !strings.Contains(content, "00:00:00,000 --> 00:00:04,000") {
		t.Errorf("first cue timing wrong:\n%s", content)
	}
	if !strings.Contains(content, "00:00:04,000 --> 00:00:09,000") {
		t.Errorf("second cue should start at the first cue's end:\n%s", content)
	}
}
