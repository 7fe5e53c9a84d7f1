package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// Both Deepgram and ElevenLabs implement this interface so the worker can
// use whichever is configured without knowing the underlying provider.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider. Duration is
// NOT reported here: the measured audio duration always comes from probing
// the written file, never from a provider estimate.
type TTSResponse struct {
	AudioData []byte
	Format    string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// GenerateSpeech converts sanitized narration text to audio using the
	// provider's configured voice.
	GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error)
}
