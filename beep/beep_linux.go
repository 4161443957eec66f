//go:build linux

package beep

import (
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	// the tail of silence lets pulse fill its buffer before Drain
	padded := make([]int16, len(samples)+sampleRate/10)
	copy(padded, samples)

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(padded) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, padded[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
