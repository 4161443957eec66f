package audio

import (
	"os"
	"sync"
	"time"
)

const (
	WAVHeaderSize = 44

	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	fakeSampleRate    = 16000
)

// FakeContext replays a fixed PCM buffer as microphone input. Setting Err
// makes every NewCapture fail, which stands in for a denied permission or
// a missing device.
type FakeContext struct {
	pcm      []byte
	realtime bool

	mu     sync.Mutex
	Err    error
	opened int
	closed int
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// LoadFakeContext reads a 16 kHz mono S16 WAV file and strips its header.
func LoadFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return NewFakeContext(data, realtime), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.opened++
	return &FakeCapture{ctx: f, pcm: f.pcm, realtime: f.realtime}, nil
}

// Open reports how many capture devices are currently held.
func (f *FakeContext) Open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened - f.closed
}

func (f *FakeContext) release() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

type FakeCapture struct {
	ctx      *FakeContext
	pcm      []byte
	realtime bool

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	closed   bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

// Start delivers the whole buffer synchronously unless the context is
// realtime, in which case chunks are paced at the capture sample rate and
// the buffer is followed by silence.
func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / fakeSampleRate
	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		for {
			if cb := f.callback(); cb != nil {
				if pos < len(f.pcm) {
					pos = f.feedChunk(cb, pos, chunkBytes)
				} else {
					cb(silence, fakeFrameSize)
				}
			}
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	already := f.closed
	f.closed = true
	f.mu.Unlock()
	if !already {
		f.ctx.release()
	}
}

// FakePlayer records playback requests instead of producing sound.
type FakePlayer struct {
	mu      sync.Mutex
	playing bool
	plays   int
	stops   int
	last    []int16
}

func (p *FakePlayer) Play(pcm []int16, _ int, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.plays++
	p.last = pcm
	return nil
}

func (p *FakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.stops++
	}
	p.playing = false
}

func (p *FakePlayer) Close() { p.Stop() }

func (p *FakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Counts returns the number of Play calls and of Stop calls that ended
// an active playback.
func (p *FakePlayer) Counts() (plays, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays, p.stops
}
