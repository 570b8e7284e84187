// Package session orchestrates one record, finalize, transcribe
// lifecycle: it owns the microphone device while recording, drains
// captured frames into the WAV encoder, drives the transcription
// engine, and reports results or failures to the UI collaborator.
package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/audio"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/log"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/recordings"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/transcriber"
)

// State is the session lifecycle position. The capture device is open
// if and only if the state is Recording.
type State int

const (
	Idle State = iota
	Recording
	Finalizing
	Transcribing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	case Transcribing:
		return "transcribing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition is returned when Start, Stop or Reset is
	// called in a state that does not accept it. The call is a no-op.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrCaptureUnderrun means the device dropped or reordered a
	// frame. The recording is unusable and the session fails.
	ErrCaptureUnderrun = errors.New("capture underrun")
	// ErrEncoding wraps finalization failures: zero frames captured,
	// disk write failures.
	ErrEncoding = errors.New("encoding failed")
)

// frameQueueLen bounds how far capture may run ahead of the encoder.
// A full queue means frames would be dropped, which is an underrun.
const frameQueueLen = 256

// Config is the immutable per-session configuration snapshot.
type Config struct {
	Context    audio.Context
	Device     *audio.DeviceInfo // nil for system default
	Engine     transcriber.Engine
	Store      *recordings.Store
	Notifier   Notifier
	SampleRate uint32
	Channels   uint32
}

// Session is the recording state machine. One instance is active at a
// time; the UI collaborator owns it and serializes intents through
// Start, Stop and Reset, all of which return without blocking on
// device, disk or network I/O.
type Session struct {
	cfg Config

	mu         sync.Mutex
	state      State
	capture    audio.CaptureDevice
	buffer     *encoder.WAV
	frames     chan audio.Frame
	feeding    bool
	collect    chan struct{}
	pendingErr error
	lastErr    error
	artifact   *encoder.Artifact
	result     *transcriber.Result
}

func New(cfg Config) *Session {
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = encoder.DefaultSampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = encoder.DefaultChannels
	}
	return &Session{cfg: cfg, state: Idle}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the transcription result once the session completed.
func (s *Session) Result() *transcriber.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Artifact returns the finalized WAV artifact, if one was produced.
// The pipeline never deletes it; removal is an explicit caller action.
func (s *Session) Artifact() *encoder.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Err returns the error that moved the session to Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start opens the capture device and begins recording. Calling it in
// any state but Idle is a no-op reported as ErrInvalidTransition; the
// device is not opened a second time.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, s.state)
	}

	capture, err := s.cfg.Context.NewCapture(s.cfg.Device, audio.CaptureConfig{
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	})
	if err != nil {
		log.Errorf("capture open failed: %v", err)
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	s.capture = capture
	s.buffer = encoder.NewWAV(s.cfg.SampleRate, s.cfg.Channels)
	s.frames = make(chan audio.Frame, frameQueueLen)
	s.feeding = true
	s.collect = make(chan struct{})
	s.pendingErr = nil
	s.lastErr = nil
	s.artifact = nil
	s.result = nil

	go s.collector(s.buffer, s.frames, s.collect)

	capture.SetCallback(func(f audio.Frame) {
		s.mu.Lock()
		if !s.feeding {
			s.mu.Unlock()
			return
		}
		select {
		case s.frames <- f:
			s.mu.Unlock()
		default:
			// Queue full: the frame would be lost, which is fatal.
			s.feeding = false
			err := fmt.Errorf("%w: frame queue overflow at seq %d", ErrCaptureUnderrun, f.Seq)
			if s.pendingErr == nil {
				s.pendingErr = err
			}
			s.mu.Unlock()
			// The capture thread cannot close its own device; fail
			// from a separate goroutine.
			go s.fail(err)
		}
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		s.teardownLocked()
		log.Errorf("capture start failed: %v", err)
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	s.toLocked(Recording)
	log.Infof("recording started on %s", capture.DeviceName())
	return nil
}

// Stop closes the capture device and finalizes the recording, then
// dispatches transcription. It returns immediately; progress is
// reported through the Notifier. Calling it in any state but
// Recording is a no-op reported as ErrInvalidTransition — in
// particular a transcription in flight cannot be cancelled.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return fmt.Errorf("%w: stop while %s", ErrInvalidTransition, s.state)
	}
	s.toLocked(Finalizing)
	capture := s.capture
	s.capture = nil
	s.mu.Unlock()

	go s.finalizeAndTranscribe(capture)
	return nil
}

// Reset clears the artifact and result references and returns the
// session to Idle. The artifact file itself is left on disk.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Completed && s.state != Failed {
		return fmt.Errorf("%w: reset while %s", ErrInvalidTransition, s.state)
	}
	s.artifact = nil
	s.result = nil
	s.lastErr = nil
	s.toLocked(Idle)
	return nil
}

// collector drains the frame queue into the encoder, watching for
// sequence gaps. It runs until the queue is closed.
func (s *Session) collector(buffer *encoder.WAV, frames <-chan audio.Frame, done chan<- struct{}) {
	defer close(done)

	// Seq is 1-based, so starting lastSeq at 0 also catches a drop
	// before the first delivered frame.
	var lastSeq uint64
	var failed bool
	for f := range frames {
		if failed {
			continue
		}
		if f.Seq != lastSeq+1 {
			failed = true
			s.recordErr(fmt.Errorf("%w: expected seq %d, got %d", ErrCaptureUnderrun, lastSeq+1, f.Seq))
			continue
		}
		lastSeq = f.Seq
		if err := buffer.Append(f); err != nil {
			failed = true
			s.recordErr(fmt.Errorf("%w: %v", ErrEncoding, err))
			continue
		}
		s.cfg.Notifier.AudioLevel(rmsLevel(f.PCM))
	}
}

// recordErr marks the session run as failed before the transition is
// published, so a concurrent finalize does not proceed on a corrupt
// buffer.
func (s *Session) recordErr(err error) {
	s.mu.Lock()
	if s.pendingErr == nil {
		s.pendingErr = err
	}
	s.mu.Unlock()
	s.fail(err)
}

func (s *Session) finalizeAndTranscribe(capture audio.CaptureDevice) {
	capture.Stop()
	capture.ClearCallback()
	capture.Close()

	s.mu.Lock()
	s.feeding = false
	frames := s.frames
	collect := s.collect
	buffer := s.buffer
	s.frames = nil
	s.mu.Unlock()

	if frames != nil {
		close(frames)
	}
	<-collect

	s.mu.Lock()
	if s.pendingErr != nil || s.state != Finalizing {
		// A capture or collector error won the race; fail publishes it.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	artifact, err := buffer.Finalize(s.cfg.Store.TempPath())
	if err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrEncoding, err))
		return
	}
	finalPath, err := s.cfg.Store.Promote(artifact.Path)
	if err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrEncoding, err))
		return
	}
	final := *artifact
	final.Path = finalPath
	log.Infof("artifact finalized: %s (%.1fs, %d bytes)", final.Path, final.Duration.Seconds(), final.Size)

	s.mu.Lock()
	s.artifact = &final
	s.toLocked(Transcribing)
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.cfg.Engine.EnsureReady(ctx); err != nil {
		s.fail(err)
		return
	}
	result, err := s.cfg.Engine.Transcribe(ctx, &final)
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	s.result = result
	s.toLocked(Completed)
	s.mu.Unlock()

	log.Transcription(result.Backend, result.Text, result.Confidence, final.Duration)
	s.cfg.Notifier.Completed(result, &final)
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state == Failed {
		s.mu.Unlock()
		return
	}
	s.lastErr = err
	capture := s.capture
	s.capture = nil
	s.feeding = false
	if s.frames != nil {
		close(s.frames)
		s.frames = nil
	}
	s.toLocked(Failed)
	s.mu.Unlock()

	if capture != nil {
		capture.ClearCallback()
		capture.Close()
	}
	log.Errorf("session failed: %v", err)
	s.cfg.Notifier.Failed(err)
}

// toLocked records the transition and notifies. Caller holds s.mu.
func (s *Session) toLocked(next State) {
	prev := s.state
	s.state = next
	log.Transition(prev.String(), next.String())
	s.cfg.Notifier.StateChanged(prev, next)
}

func (s *Session) teardownLocked() {
	if s.frames != nil {
		s.feeding = false
		close(s.frames)
		s.frames = nil
	}
	s.capture = nil
	s.buffer = nil
}

// rmsLevel computes the normalized root-mean-square level of a chunk
// of 16-bit little-endian PCM, for the UI level meter.
func rmsLevel(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(pcm)/2))
}
