package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kavinb/docshorts/internal/models"
)

type OpenAIService struct {
	client *openai.Client
}

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
	}
}

// VideoScript is the structured script returned by the model: an ordered
// list of scenes, each with narration, a visual directive, and a target
// duration.
type VideoScript struct {
	Scenes []models.Scene `json:"scenes"`
}

// GenerateScript turns extracted source content into a scene-by-scene video
// script using JSON-mode structured output. Scene indices are taken as the
// model produced them — sorted and deduplicated, never renumbered.
func (s *OpenAIService) GenerateScript(ctx context.Context, content, userPrompt string) (*VideoScript, error) {
	systemPrompt := buildScriptSystemPrompt()
	userMsg := buildScriptUserPrompt(content, userPrompt)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: "gpt-5-mini",
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMsg,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 1.0,
	})

	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content
	const maxLogLen = 2000

	var script VideoScript
	if err := json.Unmarshal([]byte(rawContent), &script); err != nil {
		log.Printf("[OpenAI script] parse failed: %v", err)
		if len(rawContent) > maxLogLen {
			log.Printf("[OpenAI script] raw response (truncated): %s...", rawContent[:maxLogLen])
		} else {
			log.Printf("[OpenAI script] raw response: %s", rawContent)
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if len(script.Scenes) == 0 {
		log.Printf("[OpenAI script] script has no scenes")
		if len(rawContent) > maxLogLen {
			log.Printf("[OpenAI script] raw response (truncated): %s...", rawContent[:maxLogLen])
		} else {
			log.Printf("[OpenAI script] raw response: %s", rawContent)
		}
		return nil, fmt.Errorf("script has no scenes")
	}

	// Validate all required fields on each scene
	for i, scene := range script.Scenes {
		var missing []string
		if scene.Text == "" {
			missing = append(missing, "text")
		}
		if scene.VisualDirective == "" {
			missing = append(missing, "image_prompt")
		}
		if scene.TargetDuration <= 0 {
			missing = append(missing, "timeframe")
		}
		if len(missing) > 0 {
			log.Printf("[OpenAI script] scene %d missing required fields: %v", i, missing)
			return nil, fmt.Errorf("scene %d missing required fields: %v", i, missing)
		}
	}

	script.Scenes = NormalizeScenes(script.Scenes)

	log.Printf("[OpenAI script] script generated: %d scenes", len(script.Scenes))

	return &script, nil
}

// NormalizeScenes sorts scenes by their model-assigned index and drops
// duplicates (first occurrence wins). Indices are never renumbered — gaps
// are preserved so downstream logs reference the same scene numbers the
// model produced.
func NormalizeScenes(scenes []models.Scene) []models.Scene {
	sorted := make([]models.Scene, len(scenes))
	copy(sorted, scenes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	out := sorted[:0]
	seen := make(map[int]bool, len(sorted))
	for _, scene := range sorted {
		if seen[scene.Index] {
			log.Printf("[OpenAI script] dropping duplicate scene index %d", scene.Index)
			continue
		}
		seen[scene.Index] = true
		out = append(out, scene)
	}
	return out
}

func buildScriptSystemPrompt() string {
	return `You are an expert short-form video scriptwriter. You turn source material into a scene-by-scene script for a narrated portrait video (1080x1920, like TikTok/Reels/Shorts).

Break the content into 4-8 scenes. Each scene has:
- scene_number: 1-based position in the video (1, 2, 3...). Sequential, no duplicates.
- text: The narration for this scene. 1-3 short conversational sentences, written to be LISTENED to. Use contractions, short punchy sentences, natural speech rhythm. No emoji, no special symbols.
- image_prompt: A complete, detailed visual scene description for an image generator: subject, setting, lighting, atmosphere, composed for portrait 9:16 framing. Never empty.
- timeframe: Target spoken duration in seconds (typically 5-10). Never zero.

Story guidelines:
- Open with a hook that creates genuine curiosity.
- Build momentum scene to scene; each one should flow from the last.
- End with a satisfying payoff, not an abrupt stop.

Respond with JSON: {"scenes": [...]}. Every field is required on every scene.`
}

func buildScriptUserPrompt(content, userPrompt string) string {
	msg := fmt.Sprintf("Write a scene-by-scene video script from the following source content:\n\n%s", content)
	if userPrompt != "" {
		msg += fmt.Sprintf("\n\nAdditional direction from the requester:\n%s", userPrompt)
	}
	return msg
}
