//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	if device != nil {
		idBytes, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	c := &malgoCapture{name: "system default"}
	if device != nil {
		c.name = device.Name
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			if cb := c.callback.Load(); cb != nil {
				(*cb)(data, frameCount)
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device   *malgo.Device
	name     string
	callback atomic.Pointer[DataCallback]
}

func (c *malgoCapture) Start() error {
	return c.device.Start()
}

func (c *malgoCapture) Stop() {
	c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) DeviceName() string { return c.name }

type malgoPlayer struct {
	ctx *malgo.AllocatedContext

	mu     sync.Mutex
	device *malgo.Device
}

func NewPlayer() (Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoPlayer{ctx: ctx}, nil
}

func (p *malgoPlayer) Play(pcm []int16, sampleRate int, loop bool) error {
	p.Stop()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate)

	next := loopReader(pcm, loop)
	var scratch []int16
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			if cap(scratch) < int(frameCount) {
				scratch = make([]int16, frameCount)
			}
			buf := scratch[:frameCount]
			clear(buf)
			next(buf)
			putS16(out, buf)
		},
	}
	dev, err := malgo.InitDevice(p.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("malgo playback: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("malgo playback start: %w", err)
	}

	p.mu.Lock()
	p.device = dev
	p.mu.Unlock()
	return nil
}

func (p *malgoPlayer) Stop() {
	p.mu.Lock()
	dev := p.device
	p.device = nil
	p.mu.Unlock()
	if dev != nil {
		dev.Stop()
		dev.Uninit()
	}
}

func (p *malgoPlayer) Close() {
	p.Stop()
	p.ctx.Uninit()
	p.ctx.Free()
}
