package audio

import (
	"os"
	"sync"
)

const fakeChunkBytes = 2048 // 1024 samples, 16-bit mono

// FakeContext is an in-process capture backend for tests. It feeds a
// fixed PCM payload through the normal callback path and can inject
// the failure modes a real device exhibits: open failures and dropped
// frames (sequence gaps).
type FakeContext struct {
	PCM      []byte
	OpenErr  error
	StartErr error
	DropSeqs map[uint64]bool

	mu   sync.Mutex
	last *FakeCapture
}

// NewFakeContextFromWAV loads the PCM payload of an existing WAV file,
// skipping its 44-byte header.
func NewFakeContextFromWAV(path string) (*FakeContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > 44 {
		data = data[44:]
	}
	return &FakeContext{PCM: data}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake-0", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	c := &FakeCapture{
		pcm:      f.PCM,
		config:   config,
		startErr: f.StartErr,
		dropSeqs: f.DropSeqs,
	}
	f.mu.Lock()
	f.last = c
	f.mu.Unlock()
	return c, nil
}

// Last returns the most recently created capture device.
func (f *FakeContext) Last() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type FakeCapture struct {
	pcm      []byte
	config   CaptureConfig
	startErr error
	dropSeqs map[uint64]bool

	mu       sync.Mutex
	cb       FrameCallback
	starts   int
	feedDone chan struct{}
}

func (c *FakeCapture) SetCallback(cb FrameCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

func (c *FakeCapture) DeviceName() string { return "fake" }

// Starts reports how many times Start has been called, so tests can
// assert that repeated session starts do not reopen the device.
func (c *FakeCapture) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	c.starts++
	cb := c.cb
	c.feedDone = make(chan struct{})
	c.mu.Unlock()

	if c.startErr != nil {
		close(c.feedDone)
		return c.startErr
	}

	go func() {
		defer close(c.feedDone)
		var seq uint64
		for pos := 0; pos < len(c.pcm); pos += fakeChunkBytes {
			end := min(pos+fakeChunkBytes, len(c.pcm))
			seq++
			if c.dropSeqs[seq] {
				continue
			}
			chunk := make([]byte, end-pos)
			copy(chunk, c.pcm[pos:end])
			if cb != nil {
				cb(Frame{
					Seq:        seq,
					PCM:        chunk,
					SampleRate: c.config.SampleRate,
					Channels:   c.config.Channels,
				})
			}
		}
	}()
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	done := c.feedDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *FakeCapture) Close() {
	c.Stop()
}
