package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Deepgram Text-to-Speech Service
// Uses the Deepgram Aura REST API to convert narration text into speech.
// Default voice: aura-luna-en.
// ---------------------------------------------------------------------------

const (
	deepgramSpeakURL     = "https://api.deepgram.com/v1/speak"
	deepgramDefaultVoice = "aura-luna-en"
)

// DeepgramService handles text-to-speech via the Deepgram Aura API.
type DeepgramService struct {
	apiKey string
	voice  string
	client *http.Client
}

// Ensure DeepgramService implements TTSService at compile time.
var _ TTSService = (*DeepgramService)(nil)

// NewDeepgramService creates a Deepgram TTS service. An empty voice falls
// back to the default aura-luna-en.
func NewDeepgramService(apiKey, voice string) *DeepgramService {
	if voice == "" {
		voice = deepgramDefaultVoice
	}
	return &DeepgramService{
		apiKey: apiKey,
		voice:  voice,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

// GenerateSpeech converts text to speech using Deepgram Aura. The request
// body is the raw narration text; the response body is the MP3 audio.
// Implements the TTSService interface.
func (s *DeepgramService) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	url := fmt.Sprintf("%s?model=%s", deepgramSpeakURL, s.voice)

	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to create Deepgram request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "text/plain")

	log.Printf("[Deepgram] Generating speech (voice=%s, textLen=%d)", s.voice, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Deepgram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Deepgram returned status %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Deepgram audio response: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("Deepgram returned empty audio")
	}

	log.Printf("[Deepgram] Speech generated (%d bytes)", len(audioData))

	return &TTSResponse{
		AudioData: audioData,
		Format:    "mp3",
	}, nil
}
