// Package encoder buffers captured PCM frames and finalizes them into
// a standard uncompressed WAV container.
package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/audio"
)

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	BitsPerSample     = 16
)

var (
	// ErrInvalidFrameSequence is returned when a frame arrives with a
	// sequence index at or below the last accepted one.
	ErrInvalidFrameSequence = errors.New("frame out of sequence")
	// ErrEmptyRecording is returned when finalizing a buffer that
	// never received a frame.
	ErrEmptyRecording = errors.New("no audio captured")
	// ErrAlreadyFinalized is returned by Append or Finalize after a
	// successful Finalize.
	ErrAlreadyFinalized = errors.New("buffer already finalized")
)

// Artifact describes a finalized WAV file. It is immutable and is
// never deleted by the pipeline itself.
type Artifact struct {
	Path       string
	Duration   time.Duration
	SampleRate uint32
	Channels   uint32
	Size       int64
}

// WAV accumulates frames in strict sequence order and writes them out
// as a single RIFF/fmt/data container. Finalize may be called once.
type WAV struct {
	mu         sync.Mutex
	sampleRate uint32
	channels   uint32
	payload    bytes.Buffer
	lastSeq    uint64
	samples    uint64
	finalized  bool
}

func NewWAV(sampleRate, channels uint32) *WAV {
	return &WAV{sampleRate: sampleRate, channels: channels}
}

// Append adds one captured frame to the buffer. Frames must arrive
// with strictly increasing sequence indices and a format matching the
// buffer's configuration.
func (w *WAV) Append(f audio.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return ErrAlreadyFinalized
	}
	if f.Seq <= w.lastSeq {
		return fmt.Errorf("%w: seq %d after %d", ErrInvalidFrameSequence, f.Seq, w.lastSeq)
	}
	if f.SampleRate != w.sampleRate || f.Channels != w.channels {
		return fmt.Errorf("frame format %dHz/%dch does not match buffer %dHz/%dch",
			f.SampleRate, f.Channels, w.sampleRate, w.channels)
	}

	w.lastSeq = f.Seq
	w.samples += uint64(f.Samples())
	w.payload.Write(f.PCM)
	return nil
}

// Samples returns the number of sample points accumulated so far.
func (w *WAV) Samples() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samples
}

// Duration returns the length of the buffered audio.
func (w *WAV) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duration()
}

func (w *WAV) duration() time.Duration {
	if w.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(w.samples) / float64(w.sampleRate) * float64(time.Second))
}

// Finalize writes the WAV container to path. The header's sample and
// byte counts match the accumulated payload exactly; compatibility
// with generic WAV readers requires byte-exact chunk sizes.
func (w *WAV) Finalize(path string) (*Artifact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return nil, ErrAlreadyFinalized
	}
	if w.payload.Len() == 0 {
		return nil, ErrEmptyRecording
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	enc := wav.NewEncoder(file, int(w.sampleRate), BitsPerSample, int(w.channels), 1)
	raw := w.payload.Bytes()
	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: int(w.channels), SampleRate: int(w.sampleRate)},
		Data:           data,
		SourceBitDepth: BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		file.Close()
		return nil, fmt.Errorf("writing wav payload: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("closing wav encoder: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	w.finalized = true
	return &Artifact{
		Path:       path,
		Duration:   w.duration(),
		SampleRate: w.sampleRate,
		Channels:   w.channels,
		Size:       info.Size(),
	}, nil
}
