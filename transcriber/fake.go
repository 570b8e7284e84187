package transcriber

import (
	"context"
	"sync/atomic"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
)

// Fake is a canned-response engine for tests.
type Fake struct {
	Text     string
	ReadyErr error
	Err      error

	calls atomic.Int64
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) EnsureReady(context.Context) error { return f.ReadyErr }

func (f *Fake) Transcribe(_ context.Context, artifact *encoder.Artifact) (*Result, error) {
	f.calls.Add(1)
	if f.ReadyErr != nil {
		return nil, f.ReadyErr
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &Result{
		Text:       f.Text,
		Backend:    f.Name(),
		Confidence: 1,
		Duration:   artifact.Duration,
	}, nil
}

// Calls reports how many times Transcribe ran.
func (f *Fake) Calls() int { return int(f.calls.Load()) }
