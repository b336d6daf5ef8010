package tts

import (
	"context"
)

// Engine defines the contract for text-to-speech backends.
// Implementations include Google Cloud TTS, gTTS (online, free) and
// Piper (offline). Engines are interchangeable for a batch run.
type Engine interface {
	// Synthesize converts the request text to MP3 audio.
	// The implementation must handle timeout protection internally.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Validate checks if the engine is properly configured and available.
	// This should verify binaries (gTTS, Piper) or credentials (Cloud).
	Validate(ctx context.Context) error

	// Close releases any resources held by the engine.
	Close() error
}

// Request is a single synthesis call.
type Request struct {
	Text     string
	Rate     float64 // speaking rate multiplier, 1.0 is normal
	Voice    string  // engine-specific voice name, empty for the engine default
	Language string  // BCP 47 tag, empty for the engine default
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string // Engine name (e.g., "gcloud", "piper")
	Voice       string // Default voice
	Language    string // Default language
	Variant     string // Other settings that change the audio (accent, model)
	MaxTextSize int    // Maximum text size in characters (bytes for gcloud)
	IsOnline    bool   // Whether the engine requires internet
}
