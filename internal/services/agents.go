package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Animation agents
//
// Three Gemini-backed agents drive the animation pipeline: the outline agent
// structures a prompt into chapters, the code agent writes a manim program
// per chapter, and the fixer agent revises failing programs given render
// diagnostics. The fixer implements Repairer, so the render-and-repair loop
// stays ignorant of which model is behind it.
// ---------------------------------------------------------------------------

const agentModel = "gemini-2.5-flash"

// Chapter is one outlined unit of the animation: it becomes one rendered
// scene in the final video.
type Chapter struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// Outline is the structured plan the outline agent produces.
type Outline struct {
	Chapters []Chapter `json:"chapters"`
}

type AgentService struct {
	apiKey string
}

func NewAgentService(apiKey string) *AgentService {
	return &AgentService{apiKey: apiKey}
}

func (s *AgentService) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// GenerateOutline structures a free-form prompt into 2-3 chapters, each
// with a title and the explanation the chapter should animate.
func (s *AgentService) GenerateOutline(ctx context.Context, prompt string) (*Outline, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return nil, err
	}

	systemPrompt := `You are an educational content planner. Break the requested topic into 2-3 chapters for a short animated explainer video.

Each chapter has:
- title: a short chapter heading
- explanation: 2-4 sentences describing exactly what this chapter should visually explain

Respond with JSON: {"chapters": [{"title": ..., "explanation": ...}, ...]}`

	resp, err := client.Models.GenerateContent(ctx, agentModel,
		genai.Text(systemPrompt+"\n\nTopic:\n"+prompt),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	raw := resp.Text()

	var outline Outline
	if err := json.Unmarshal([]byte(raw), &outline); err != nil {
		log.Printf("[Agent outline] parse failed: %v (raw: %s)", err, truncate(raw, 500))
		return nil, fmt.Errorf("failed to parse outline: %w", err)
	}

	if len(outline.Chapters) == 0 {
		return nil, fmt.Errorf("outline has no chapters")
	}
	for i, ch := range outline.Chapters {
		if ch.Title == "" || ch.Explanation == "" {
			return nil, fmt.Errorf("chapter %d missing title or explanation", i)
		}
	}

	log.Printf("[Agent outline] %d chapters generated", len(outline.Chapters))
	return &outline, nil
}

// GenerateProgram writes a complete manim program animating one chapter.
// The returned text is a runnable Python module with a single Scene class.
func (s *AgentService) GenerateProgram(ctx context.Context, chapter Chapter) (string, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a manim (Community Edition) expert. Write a complete, runnable manim program animating the chapter below.

Requirements:
- One file, starting with "from manim import *".
- Exactly one class inheriting from Scene, named after the chapter title in CamelCase.
- Use only standard manim CE constructs (Text, MathTex, Create, Write, FadeIn, FadeOut, Transform, arrows, shapes).
- Keep every element inside the visible frame; avoid overlapping text.
- Total animation length around 15-30 seconds of play time.
- Output ONLY the Python source, no markdown fences, no commentary.

Chapter title: %s
Chapter explanation: %s`, chapter.Title, chapter.Explanation)

	resp, err := client.Models.GenerateContent(ctx, agentModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("program generation failed: %w", err)
	}

	program := stripCodeFences(resp.Text())
	if strings.TrimSpace(program) == "" {
		return "", fmt.Errorf("program generation returned empty output")
	}

	log.Printf("[Agent code] program generated for %q (%d bytes)", chapter.Title, len(program))
	return program, nil
}

// Repair implements the Repairer interface: given the renderer's diagnostics
// and the failing program, produce a corrected program.
func (s *AgentService) Repair(ctx context.Context, errText, program string) (string, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a manim (Community Edition) debugging expert. The program below failed to render. Fix it.

Rules:
- Keep the same Scene class name and the same visual intent.
- If the error indicates a timeout, simplify the animation until it renders quickly.
- Output ONLY the corrected Python source, no markdown fences, no commentary.

Render error:
%s

Failing program:
%s`, errText, program)

	resp, err := client.Models.GenerateContent(ctx, agentModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("program repair failed: %w", err)
	}

	revised := stripCodeFences(resp.Text())
	if strings.TrimSpace(revised) == "" {
		return "", fmt.Errorf("program repair returned empty output")
	}

	log.Printf("[Agent fixer] revised program produced (%d bytes)", len(revised))
	return revised, nil
}

// stripCodeFences removes a surrounding markdown code fence if the model
// added one despite instructions.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```python")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
