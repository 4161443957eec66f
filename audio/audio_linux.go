//go:build linux

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if device != nil {
		if source, err := p.client.SourceByID(device.ID); err != nil || source == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoDevice, device.Name)
		}
	} else if _, err := p.client.DefaultSource(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return &pulseCapture{client: p.client, device: device, rate: int(config.SampleRate)}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

// pulseCapture opens a record stream per Start. The stream lives until
// halt is called by Stop or Close.
type pulseCapture struct {
	client *pulse.Client
	device *DeviceInfo
	rate   int
	sink   atomic.Pointer[DataCallback]

	mu   sync.Mutex
	halt func()
}

func (c *pulseCapture) recordOptions() []pulse.RecordOption {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(c.rate),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	}
	if c.device == nil {
		return opts
	}
	if src, err := c.client.SourceByID(c.device.ID); err == nil && src != nil {
		opts = append(opts, pulse.RecordSource(src))
	}
	return opts
}

func (c *pulseCapture) deliver(samples []int16) (int, error) {
	if cb := c.sink.Load(); cb != nil && len(samples) > 0 {
		data := make([]byte, len(samples)*2)
		putS16(data, samples)
		(*cb)(data, uint32(len(samples)))
	}
	return len(samples), nil
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halt != nil {
		return nil
	}

	stream, err := c.client.NewRecord(pulse.Int16Writer(c.deliver), c.recordOptions()...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	var once sync.Once
	c.halt = func() {
		once.Do(func() {
			stream.Stop()
			stream.Close()
		})
	}
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	halt := c.halt
	c.halt = nil
	c.mu.Unlock()
	if halt != nil {
		halt()
	}
}

func (c *pulseCapture) Close() { c.Stop() }

func (c *pulseCapture) SetCallback(cb DataCallback) { c.sink.Store(&cb) }

func (c *pulseCapture) ClearCallback() { c.sink.Store(nil) }

func (c *pulseCapture) DeviceName() string {
	if c.device == nil {
		return "system default"
	}
	return c.device.Name
}

type pulsePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
	stream *pulse.PlaybackStream
}

func NewPlayer() (Player, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulsePlayer{client: c}, nil
}

func (p *pulsePlayer) Play(pcm []int16, sampleRate int, loop bool) error {
	p.Stop()

	next := loopReader(pcm, loop)
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := next(buf)
		if n == 0 {
			return 0, pulse.EndOfData
		}
		return n, nil
	})
	stream, err := p.client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	stream.Start()

	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()
	return nil
}

func (p *pulsePlayer) Stop() {
	p.mu.Lock()
	stream := p.stream
	p.stream = nil
	p.mu.Unlock()
	if stream != nil {
		stream.Stop()
		stream.Close()
	}
}

func (p *pulsePlayer) Close() {
	p.Stop()
	p.client.Close()
}
