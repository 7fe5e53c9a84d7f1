package models

import (
	"encoding/json"
	"testing"
)

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusRunning,
		JobStatusSucceeded,
		JobStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestSceneState(t *testing.T) {
	states := []SceneState{
		SceneGenerated,
		SceneRendering,
		SceneRepairing,
		SceneSucceeded,
		SceneFailed,
		SceneSkipped,
	}

	for _, state := range states {
		if state == "" {
			t.Errorf("empty scene state found")
		}
	}
}

func TestSceneJSONFields(t *testing.T) {
	raw := `{"scene_number": 2, "text": "Narration here.", "image_prompt": "A quiet library.", "timeframe": 6}`

	var scene Scene
	if err := json.Unmarshal([]byte(raw), &scene); err != nil {
		t.Fatalf("failed to unmarshal scene: %v", err)
	}

	if scene.Index != 2 {
		t.Errorf("expected index 2, got %d", scene.Index)
	}
	if scene.Text != "Narration here." {
		t.Errorf("unexpected text %q", scene.Text)
	}
	if scene.VisualDirective != "A quiet library." {
		t.Errorf("unexpected visual directive %q", scene.VisualDirective)
	}
	if scene.TargetDuration != 6 {
		t.Errorf("expected timeframe 6, got %d", scene.TargetDuration)
	}
}
