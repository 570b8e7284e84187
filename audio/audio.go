// Package audio owns the microphone device: enumeration, exclusive
// capture streams, and the frame format handed to the encoder.
package audio

import (
	"errors"
	"strings"
)

// ErrDeviceUnavailable is returned when the configured input device
// cannot be opened: unknown id, or exclusive access held elsewhere.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Frame is one chunk of captured signed 16-bit little-endian PCM.
// Seq starts at 1 and increases strictly by one per delivered frame;
// a gap means the device dropped audio.
type Frame struct {
	Seq        uint64
	PCM        []byte
	SampleRate uint32
	Channels   uint32
}

// Samples returns the number of PCM sample points per channel.
func (f Frame) Samples() int {
	return len(f.PCM) / 2 / int(f.Channels)
}

type FrameCallback func(f Frame)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice is an exclusively-owned microphone stream. Frames are
// sequence-stamped and delivered to the registered callback from the
// platform's capture thread until Stop. Close is idempotent and safe
// to call even if no frames were ever produced.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb FrameCallback)
	ClearCallback()
	DeviceName() string
}
