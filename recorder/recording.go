package recorder

import (
	"math"
	"time"

	"github.com/google/uuid"

	"intentdeck/blob"
	"intentdeck/decode"
	"intentdeck/encoder"
	"intentdeck/intent"
	"intentdeck/log"
)

const (
	SourceMic    = "mic"
	SourceUpload = "upload"

	voiceFrame     = encoder.SampleRate / 50 // 20 ms
	voiceThreshold = 0.015
)

// Clip is an immutable captured or uploaded recording.
type Clip struct {
	ID         string
	Source     string
	Name       string
	MIME       string
	Payload    []byte
	URL        string
	PCM        []int16
	SampleRate int
	Duration   time.Duration
	Voiced     bool
}

func newClip(source, name, mime string, payload []byte, pcm []int16, sampleRate int) *Clip {
	c := &Clip{
		ID:         uuid.NewString(),
		Source:     source,
		Name:       name,
		MIME:       mime,
		Payload:    payload,
		PCM:        pcm,
		SampleRate: sampleRate,
		Voiced:     voiced(pcm),
	}
	if sampleRate > 0 {
		c.Duration = time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)
	}
	return c
}

func decodeUpload(name string, data []byte) *Clip {
	pcm, err := decode.PCM16(name, data)
	rate := encoder.SampleRate
	if err != nil {
		log.Warnf("cannot decode %s for playback: %v", name, err)
		pcm, rate = nil, 0
	}
	return newClip(SourceUpload, name, decode.MIME(name), data, pcm, rate)
}

func (c *Clip) blob() *blob.Blob {
	return &blob.Blob{
		Name:       c.Name,
		MIME:       c.MIME,
		Data:       c.Payload,
		PCM:        c.PCM,
		SampleRate: c.SampleRate,
	}
}

func (c *Clip) payload() intent.Payload {
	return intent.Payload{Name: c.Name, MIME: c.MIME, Data: c.Payload}
}

// voiced reports whether any 20 ms frame rises above the speech energy
// threshold.
func voiced(pcm []int16) bool {
	for i := 0; i+voiceFrame <= len(pcm); i += voiceFrame {
		if frameRMS(pcm[i:i+voiceFrame]) > voiceThreshold {
			return true
		}
	}
	return false
}

func frameRMS(f []int16) float64 {
	var s float64
	for _, x := range f {
		v := float64(x) / 32768
		s += v * v
	}
	return math.Sqrt(s / float64(len(f)))
}
