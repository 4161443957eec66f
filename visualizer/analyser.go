package visualizer

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	FFTSize     = 256
	Bins        = FFTSize / 2
	Smoothing   = 0.8
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

// Analyser turns a window of PCM into byte-scaled frequency magnitudes
// with the same windowing, smoothing and dB mapping as a browser
// AnalyserNode.
type Analyser struct {
	fft      *fourier.FFT
	window   []float64
	input    []float64
	coeff    []complex128
	smoothed []float64
}

func NewAnalyser() *Analyser {
	a := &Analyser{
		fft:      fourier.NewFFT(FFTSize),
		window:   make([]float64, FFTSize),
		input:    make([]float64, FFTSize),
		coeff:    make([]complex128, FFTSize/2+1),
		smoothed: make([]float64, Bins),
	}
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	for i := range a.window {
		x := float64(i) / FFTSize
		a.window[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return a
}

func (a *Analyser) Reset() {
	clear(a.smoothed)
}

// ByteFrequencyData analyses the last FFTSize samples of frame (zero
// padded when shorter) into dst, which must hold Bins values.
func (a *Analyser) ByteFrequencyData(frame []int16, dst []uint8) {
	clear(a.input)
	if len(frame) > FFTSize {
		frame = frame[len(frame)-FFTSize:]
	}
	for i, s := range frame {
		a.input[i] = float64(s) / 32768 * a.window[i]
	}
	a.coeff = a.fft.Coefficients(a.coeff, a.input)

	for k := 0; k < Bins && k < len(dst); k++ {
		mag := cmplx.Abs(a.coeff[k]) / FFTSize
		a.smoothed[k] = Smoothing*a.smoothed[k] + (1-Smoothing)*mag
		dst[k] = toByte(a.smoothed[k])
	}
}

func toByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

// windowAt returns the n samples of a looping clip that end at pos.
func windowAt(pcm []int16, pos, n int) []int16 {
	out := make([]int16, n)
	if len(pcm) == 0 {
		return out
	}
	start := pos - n
	for i := range out {
		j := (start + i) % len(pcm)
		if j < 0 {
			j += len(pcm)
		}
		out[i] = pcm[j]
	}
	return out
}
