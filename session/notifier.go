package session

import (
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/transcriber"
)

// Notifier abstracts the display layer so any UI collaborator can
// receive session events. Calls arrive from session goroutines, never
// from the caller of Start/Stop/Reset; implementations must not block.
type Notifier interface {
	StateChanged(from, to State)
	AudioLevel(rms float64)
	Completed(result *transcriber.Result, artifact *encoder.Artifact)
	Failed(err error)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) StateChanged(State, State)                        {}
func (NopNotifier) AudioLevel(float64)                               {}
func (NopNotifier) Completed(*transcriber.Result, *encoder.Artifact) {}
func (NopNotifier) Failed(error)                                     {}
