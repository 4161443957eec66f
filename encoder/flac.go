package encoder

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder writes a mono S16 FLAC stream in memory. Input of any length
// is regrouped into BlockSize frames; Close flushes the short tail.
type FlacEncoder struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	enc         *flac.Encoder
	pending     []int16
	totalFrames uint64
	encodeTime  time.Duration
	closed      bool
}

func NewFlac() (*FlacEncoder, error) {
	e := &FlacEncoder{pending: make([]int16, 0, BlockSize)}
	enc, err := flac.NewEncoder(&e.buf, &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

func (e *FlacEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("flac encoder closed")
	}
	start := time.Now()
	defer func() { e.encodeTime += time.Since(start) }()

	for len(block) > 0 {
		n := min(BlockSize-len(e.pending), len(block))
		e.pending = append(e.pending, block[:n]...)
		block = block[n:]
		e.totalFrames += uint64(n)
		if len(e.pending) == BlockSize {
			if err := e.flushLocked(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *FlacEncoder) flushLocked() error {
	if len(e.pending) == 0 {
		return nil
	}
	samples := make([]int32, len(e.pending))
	for i, s := range e.pending {
		samples[i] = int32(s)
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(samples)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(samples),
		}},
	}
	e.pending = e.pending[:0]
	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	return nil
}

func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.flushLocked(); err != nil {
		return err
	}
	return e.enc.Close()
}

func (e *FlacEncoder) Bytes() []byte { return e.buf.Bytes() }

func (e *FlacEncoder) TotalFrames() uint64 { return e.totalFrames }

func (e *FlacEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}

func (e *FlacEncoder) MIME() string { return "audio/flac" }
