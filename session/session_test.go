package session

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/audio"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/recordings"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/transcriber"
)

// recordingNotifier collects session events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	states []State
	errs   []error
	done   chan State // receives Completed and Failed
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan State, 4)}
}

func (n *recordingNotifier) StateChanged(_, to State) {
	n.mu.Lock()
	n.states = append(n.states, to)
	n.mu.Unlock()
	if to == Completed || to == Failed {
		n.done <- to
	}
}

func (n *recordingNotifier) AudioLevel(float64) {}

func (n *recordingNotifier) Completed(*transcriber.Result, *encoder.Artifact) {}

func (n *recordingNotifier) Failed(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

func (n *recordingNotifier) waitDone(t *testing.T) State {
	t.Helper()
	select {
	case s := <-n.done:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session to settle")
		return Idle
	}
}

func (n *recordingNotifier) seen(t *testing.T) []State {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]State(nil), n.states...)
}

func silencePCM(seconds int) []byte {
	return make([]byte, seconds*16000*2)
}

func newTestSession(t *testing.T, ctx audio.Context, engine transcriber.Engine, n Notifier) *Session {
	t.Helper()
	store, err := recordings.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	return New(Config{
		Context:    ctx,
		Engine:     engine,
		Store:      store,
		Notifier:   n,
		SampleRate: 16000,
		Channels:   1,
	})
}

func TestRecordTwoSecondsOfSilence(t *testing.T) {
	fc := &audio.FakeContext{PCM: silencePCM(2)}
	engine := &transcriber.Fake{Text: ""}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, engine, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.State(); got != Recording {
		t.Fatalf("state after Start = %v, want Recording", got)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := n.waitDone(t); got != Completed {
		t.Fatalf("session settled in %v (err=%v), want Completed", got, s.Err())
	}

	art := s.Artifact()
	if art == nil {
		t.Fatal("no artifact after completion")
	}
	// 2s of 16kHz mono 16-bit: 64000 payload bytes plus header.
	if art.Size != 64044 {
		t.Errorf("artifact size = %d, want 64044", art.Size)
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Errorf("artifact missing on disk: %v", err)
	}

	result := s.Result()
	if result == nil {
		t.Fatal("no result after completion")
	}
	if result.Text != "" {
		t.Errorf("silence transcribed as %q, want empty", result.Text)
	}

	want := []State{Recording, Finalizing, Transcribing, Completed}
	got := n.seen(t)
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
}

func TestStartWhileRecording(t *testing.T) {
	fc := &audio.FakeContext{PCM: silencePCM(1)}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, &transcriber.Fake{}, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Start = %v, want ErrInvalidTransition", err)
	}
	if got := fc.Last().Starts(); got != 1 {
		t.Errorf("device started %d times, want 1", got)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	n.waitDone(t)
}

func TestStopWhileIdle(t *testing.T) {
	s := newTestSession(t, &audio.FakeContext{}, &transcriber.Fake{}, nil)
	if err := s.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Stop while idle = %v, want ErrInvalidTransition", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reset while idle = %v, want ErrInvalidTransition", err)
	}
}

func TestStartWithUnavailableDevice(t *testing.T) {
	fc := &audio.FakeContext{OpenErr: audio.ErrDeviceUnavailable}
	s := newTestSession(t, fc, &transcriber.Fake{}, nil)

	if err := s.Start(); !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("Start = %v, want ErrDeviceUnavailable", err)
	}
	if got := s.State(); got != Idle {
		t.Errorf("state = %v, want Idle after failed open", got)
	}
	// The session stays usable.
	fc.OpenErr = nil
	fc.PCM = silencePCM(1)
	if err := s.Start(); err != nil {
		t.Fatalf("Start after recovery: %v", err)
	}
}

func TestStopWithZeroFrames(t *testing.T) {
	fc := &audio.FakeContext{} // no PCM: device produces nothing
	n := newRecordingNotifier()
	s := newTestSession(t, fc, &transcriber.Fake{}, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := n.waitDone(t); got != Failed {
		t.Fatalf("session settled in %v, want Failed", got)
	}
	if err := s.Err(); !errors.Is(err, ErrEncoding) {
		t.Errorf("Err() = %v, want ErrEncoding", err)
	}
}

func TestDroppedFrameFailsSession(t *testing.T) {
	fc := &audio.FakeContext{
		PCM:      silencePCM(1),
		DropSeqs: map[uint64]bool{3: true},
	}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, &transcriber.Fake{}, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := n.waitDone(t); got != Failed {
		t.Fatalf("session settled in %v, want Failed", got)
	}
	if err := s.Err(); !errors.Is(err, ErrCaptureUnderrun) {
		t.Errorf("Err() = %v, want ErrCaptureUnderrun", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Stop after failure = %v, want ErrInvalidTransition", err)
	}
	if err := s.Reset(); err != nil {
		t.Errorf("Reset after failure: %v", err)
	}
}

func TestDroppedFirstFrameFailsSession(t *testing.T) {
	fc := &audio.FakeContext{
		PCM:      silencePCM(1),
		DropSeqs: map[uint64]bool{1: true},
	}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, &transcriber.Fake{}, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := n.waitDone(t); got != Failed {
		t.Fatalf("session settled in %v, want Failed", got)
	}
	if err := s.Err(); !errors.Is(err, ErrCaptureUnderrun) {
		t.Errorf("Err() = %v, want ErrCaptureUnderrun", err)
	}
}

func TestModelNotLoadedIsRecoverable(t *testing.T) {
	fc := &audio.FakeContext{PCM: silencePCM(1)}
	engine := &transcriber.Fake{Text: "hello", ReadyErr: transcriber.ErrModelNotLoaded}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, engine, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := n.waitDone(t); got != Failed {
		t.Fatalf("session settled in %v, want Failed", got)
	}
	if err := s.Err(); !errors.Is(err, transcriber.ErrModelNotLoaded) {
		t.Errorf("Err() = %v, want ErrModelNotLoaded", err)
	}

	// Model becomes available; a fresh run succeeds.
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	engine.ReadyErr = nil

	if err := s.Start(); err != nil {
		t.Fatalf("Start after reset: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop after reset: %v", err)
	}
	if got := n.waitDone(t); got != Completed {
		t.Fatalf("session settled in %v (err=%v), want Completed", got, s.Err())
	}
	if got := s.Result().Text; got != "hello" {
		t.Errorf("Result().Text = %q, want %q", got, "hello")
	}
}

func TestResetKeepsArtifactOnDisk(t *testing.T) {
	fc := &audio.FakeContext{PCM: silencePCM(1)}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, &transcriber.Fake{Text: "ok"}, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := n.waitDone(t); got != Completed {
		t.Fatalf("session settled in %v, want Completed", got)
	}

	path := s.Artifact().Path
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Artifact() != nil || s.Result() != nil {
		t.Error("Reset did not clear references")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Reset removed artifact from disk: %v", err)
	}
	if got := s.State(); got != Idle {
		t.Errorf("state after Reset = %v, want Idle", got)
	}
}

func TestTranscriptionErrorFailsSession(t *testing.T) {
	fc := &audio.FakeContext{PCM: silencePCM(1)}
	engine := &transcriber.Fake{Err: transcriber.ErrTranscription}
	n := newRecordingNotifier()
	s := newTestSession(t, fc, engine, n)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := n.waitDone(t); got != Failed {
		t.Fatalf("session settled in %v, want Failed", got)
	}
	if err := s.Err(); !errors.Is(err, transcriber.ErrTranscription) {
		t.Errorf("Err() = %v, want ErrTranscription", err)
	}
	// The artifact survives the failure for later inspection.
	if art := s.Artifact(); art == nil {
		t.Error("artifact reference lost on transcription failure")
	}
}

func TestRMSLevel(t *testing.T) {
	if got := rmsLevel(make([]byte, 2048)); got != 0 {
		t.Errorf("rms of silence = %f, want 0", got)
	}
	loud := make([]byte, 4)
	loud[0], loud[1] = 0xFF, 0x7F // 32767
	loud[2], loud[3] = 0xFF, 0x7F
	if got := rmsLevel(loud); got < 0.99 {
		t.Errorf("rms of full scale = %f, want ~1", got)
	}
}
