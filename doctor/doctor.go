package doctor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"intentdeck/audio"
	"intentdeck/clipboard"
	"intentdeck/encoder"
	"intentdeck/intent"
)

type Options struct {
	Endpoint string
	Device   string
	Format   string
	Capture  time.Duration

	// Audio replaces the platform capture context when set.
	Audio audio.Context
	Out   io.Writer
}

type checker struct {
	opts Options
	out  io.Writer
	pcm  []byte
}

// Run executes the diagnostic checks and returns an exit code (0 = all
// pass, 1 = any fail).
func Run(opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
		resetTerminal()
		setupInterruptHandler()
	}
	if opts.Capture <= 0 {
		opts.Capture = time.Second
	}
	c := &checker{opts: opts, out: opts.Out}

	c.printf("intentdeck doctor\n")
	c.printf("=================\n")

	ok := c.checkMicrophone()
	if ok {
		ok = c.checkEndpoint()
	}
	clipOK := c.checkClipboard()

	c.printf("\n")
	if ok {
		c.printf("All required checks passed!\n")
		if !clipOK {
			c.printf("Clipboard copy is unavailable; the c key will be disabled.\n")
		}
		return 0
	}
	c.printf("Some checks failed. See details above.\n")
	return 1
}

func (c *checker) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *checker) checkMicrophone() bool {
	c.printf("\n[1/3] Microphone\n")

	ctx := c.opts.Audio
	if ctx == nil {
		var err error
		if ctx, err = audio.NewContext(); err != nil {
			c.printf("  FAIL: cannot connect to audio: %v\n", err)
			return false
		}
		defer ctx.Close()
	}

	devices, err := ctx.Devices()
	if err != nil {
		c.printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		c.printf("  FAIL: no capture devices found\n")
		return false
	}
	for _, d := range devices {
		c.printf("  found: %s\n", d.Name)
	}

	device, err := audio.FindDevice(ctx, c.opts.Device)
	if err != nil {
		c.printf("  FAIL: %v\n", err)
		return false
	}

	pcm, err := capture(ctx, device, c.opts.Capture)
	if err != nil {
		c.printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		c.printf("  FAIL: no audio captured\n")
		return false
	}
	c.pcm = pcm
	level := rms(encoder.Samples(pcm))
	c.printf("  PASS: captured %.1f KB, level %.3f\n", float64(len(pcm))/1024, level)
	if level < 0.002 {
		c.printf("  Warning: input is near silent; check the selected device and its gain\n")
	}
	return true
}

func (c *checker) checkEndpoint() bool {
	c.printf("\n[2/3] Intent endpoint\n")

	enc, err := encoder.EncodePCM(c.opts.Format, c.pcm)
	if err != nil {
		c.printf("  FAIL: encode: %v\n", err)
		return false
	}
	client := intent.NewClient(c.opts.Endpoint)
	c.printf("  POST %s (%d bytes %s)\n", client.Endpoint(), len(enc.Bytes()), enc.MIME())

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	res, err := client.Classify(ctx, intent.Payload{Name: intent.UploadFilename, MIME: enc.MIME(), Data: enc.Bytes()})
	if err != nil {
		c.printf("  FAIL: %v\n", err)
		return false
	}
	if res.StatusCode >= 300 {
		c.printf("  FAIL: endpoint answered %d\n", res.StatusCode)
		return false
	}
	m := res.Metrics
	c.printf("  PASS: intent %q (dns %dms, tls %dms, ttfb %dms, total %dms)\n",
		res.Intent, m.DNS.Milliseconds(), m.TLS.Milliseconds(), m.TTFB.Milliseconds(), m.Total.Milliseconds())
	return true
}

func (c *checker) checkClipboard() bool {
	c.printf("\n[3/3] Clipboard\n")

	const probe = "intentdeck-doctor-test"
	prev, _ := clipboard.Read()
	if err := clipboard.Copy(probe); err != nil {
		c.printf("  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if prev != "" {
		clipboard.Copy(prev)
	}
	if err != nil || got != probe {
		c.printf("  FAIL: clipboard read back %q, want %q\n", got, probe)
		return false
	}
	c.printf("  PASS: clipboard round trip\n")
	return true
}

func capture(ctx audio.Context, device *audio.DeviceInfo, d time.Duration) ([]byte, error) {
	dev, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	var mu sync.Mutex
	var buf []byte
	dev.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		buf = append(buf, data...)
		mu.Unlock()
	})
	if err := dev.Start(); err != nil {
		return nil, err
	}
	time.Sleep(d)
	dev.Stop()
	dev.ClearCallback()

	mu.Lock()
	defer mu.Unlock()
	return buf, nil
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var s float64
	for _, x := range samples {
		v := float64(x) / 32768
		s += v * v
	}
	return math.Sqrt(s / float64(len(samples)))
}
