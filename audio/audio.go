package audio

import (
	"encoding/binary"
	"errors"
)

// ErrNoDevice is returned when no capture device can be opened.
var ErrNoDevice = errors.New("no capture device available")

type DataCallback func(data []byte, frameCount uint32)

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

// CaptureDevice is an open microphone stream. Close releases the device;
// it is not reusable afterwards.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Player plays mono S16 PCM, optionally looping until Stop.
type Player interface {
	Play(pcm []int16, sampleRate int, loop bool) error
	Stop()
	Close()
}

// loopReader copies pcm into buf, wrapping around when loop is set. It
// returns 0 once a non-looping clip is exhausted.
func loopReader(pcm []int16, loop bool) func(buf []int16) int {
	pos := 0
	return func(buf []int16) int {
		if len(pcm) == 0 {
			return 0
		}
		n := 0
		for n < len(buf) {
			if pos >= len(pcm) {
				if !loop {
					break
				}
				pos = 0
			}
			c := copy(buf[n:], pcm[pos:])
			n += c
			pos += c
		}
		return n
	}
}

// putS16 writes samples into out as little-endian S16.
func putS16(out []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
}
