// Package transcriber turns finalized WAV artifacts into text. Two
// backends are supported: an offline Vosk model and the OpenAI
// transcription API. The backend is chosen once at construction.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
)

var (
	// ErrModelNotLoaded means the offline model directory is missing
	// or invalid. Recoverable: fetch the model and retry.
	ErrModelNotLoaded = errors.New("speech model not loaded")
	// ErrUnsupportedFormat means the artifact's sample rate or channel
	// count does not match what the engine expects. The engine never
	// resamples silently.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrTranscription covers backend failures: network, auth, remote
	// timeout, malformed audio or response.
	ErrTranscription = errors.New("transcription failed")
)

// Result is the outcome of transcribing one artifact.
type Result struct {
	Text       string
	Backend    string
	Confidence float64
	Duration   time.Duration
	Language   string
}

// Engine is a transcription backend.
type Engine interface {
	Name() string
	// EnsureReady verifies the backend can accept work without
	// performing it: model loaded, credentials present.
	EnsureReady(ctx context.Context) error
	Transcribe(ctx context.Context, artifact *encoder.Artifact) (*Result, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string // "vosk" or "openai"
	ModelPath  string // vosk model directory (or parent to search)
	APIKey     string
	Language   string
	SampleRate uint32
	Channels   uint32
}

// New constructs the configured backend.
func New(cfg Config) (Engine, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = encoder.DefaultSampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = encoder.DefaultChannels
	}
	switch cfg.Backend {
	case "", "vosk":
		return NewVosk(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
	}
}

// probeArtifact reads the artifact's header with a standard WAV reader
// and rejects formats the engine was not configured for.
func probeArtifact(artifact *encoder.Artifact, sampleRate, channels uint32) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("%w: opening artifact: %v", ErrTranscription, err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	dec.ReadInfo()
	if dec.Err() != nil {
		return fmt.Errorf("%w: reading wav header: %v", ErrTranscription, dec.Err())
	}
	if dec.SampleRate != sampleRate || uint32(dec.NumChans) != channels {
		return fmt.Errorf("%w: artifact is %dHz/%dch, engine expects %dHz/%dch",
			ErrUnsupportedFormat, dec.SampleRate, dec.NumChans, sampleRate, channels)
	}
	return nil
}
