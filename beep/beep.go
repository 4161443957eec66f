package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

func Disabled() bool { return disabled.Load() }

const (
	sampleRate = 44100

	// recording started: high, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// countdown tick: quieter click
	tickFreq   = 1500
	tickVolume = 0.25
	tickDecay  = 90

	// recording finished
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// device or analysis failure: low double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

type Sound int

const (
	Start Sound = iota
	Tick
	End
	Error
)

var (
	sounds    [4][]int16
	soundOnce sync.Once
)

func initSounds() {
	sounds[Start] = generateTick(startFreq, 0.05, startVolume, startDecay)
	sounds[Tick] = generateTick(tickFreq, 0.03, tickVolume, tickDecay)
	sounds[End] = generateTick(endFreq, 0.08, endVolume, endDecay)
	sounds[Error] = generateDoubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

// Samples returns the mono S16 samples for s at the beep sample rate.
func Samples(s Sound) []int16 {
	soundOnce.Do(initSounds)
	if s < 0 || int(s) >= len(sounds) {
		return nil
	}
	return sounds[s]
}

func generateTick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return out
}

func generateDoubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := generateTick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

// Play sounds s asynchronously. It never blocks the caller and is silent
// after Disable or when no output device is available.
func Play(s Sound) {
	if disabled.Load() {
		return
	}
	samples := Samples(s)
	go playSamples(samples)
}

func PlayStart() { Play(Start) }
func PlayTick()  { Play(Tick) }
func PlayEnd()   { Play(End) }
func PlayError() { Play(Error) }
