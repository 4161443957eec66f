//go:build !linux

package beep

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoCtx  *oto.Context
	otoOnce sync.Once
)

func initOto() {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return
	}
	<-ready
	otoCtx = ctx
}

func playSamples(samples []int16) {
	otoOnce.Do(initOto)
	if otoCtx == nil || len(samples) == 0 {
		return
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	player := otoCtx.NewPlayer(bytes.NewReader(buf))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(5 * time.Millisecond)
	}
	player.Close()
}
