package audio

import (
	"testing"
)

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Sony WH-1000XM4", true},
		{"JBL Tune 510BT", true},
		{"Built-in Audio Analog Stereo", false},
		{"USB PnP Sound Device", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBluetooth(tt.name); got != tt.want {
				t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFrameSamples(t *testing.T) {
	f := Frame{PCM: make([]byte, 2048), Channels: 1}
	if got := f.Samples(); got != 1024 {
		t.Errorf("Samples() = %d, want 1024", got)
	}
	f = Frame{PCM: make([]byte, 2048), Channels: 2}
	if got := f.Samples(); got != 512 {
		t.Errorf("Samples() = %d, want 512", got)
	}
}

func TestFakeCaptureSequenceOrder(t *testing.T) {
	pcm := make([]byte, fakeChunkBytes*4)
	fc := &FakeContext{PCM: pcm}
	dev, err := fc.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("NewCapture: %v", err)
	}

	var seqs []uint64
	ch := make(chan Frame, 16)
	dev.SetCallback(func(f Frame) { ch <- f })
	if err := dev.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.Stop()
	close(ch)
	for f := range ch {
		seqs = append(seqs, f.Seq)
	}

	if len(seqs) != 4 {
		t.Fatalf("got %d frames, want 4", len(seqs))
	}
	for i, s := range seqs {
		if s != uint64(i+1) {
			t.Errorf("frame %d has seq %d, want %d", i, s, i+1)
		}
	}
}

func TestFakeCaptureDropInjection(t *testing.T) {
	pcm := make([]byte, fakeChunkBytes*3)
	fc := &FakeContext{PCM: pcm, DropSeqs: map[uint64]bool{2: true}}
	dev, _ := fc.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})

	ch := make(chan Frame, 16)
	dev.SetCallback(func(f Frame) { ch <- f })
	if err := dev.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.Stop()
	close(ch)

	var seqs []uint64
	for f := range ch {
		seqs = append(seqs, f.Seq)
	}
	want := []uint64{1, 3}
	if len(seqs) != len(want) {
		t.Fatalf("got seqs %v, want %v", seqs, want)
	}
	for i := range want {
		if seqs[i] != want[i] {
			t.Fatalf("got seqs %v, want %v", seqs, want)
		}
	}
}
