// Package decode turns uploaded audio files into 16 kHz mono PCM for
// playback analysis.
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"intentdeck/encoder"
)

var ErrUnsupported = errors.New("unsupported audio format")

// PCM16 decodes data to mono int16 samples at encoder.SampleRate. The
// container is picked from the file extension, falling back to sniffing
// the magic bytes.
func PCM16(name string, data []byte) ([]int16, error) {
	var x []float32
	var err error
	switch kind(name, data) {
	case "wav":
		x, err = decodeWAV(data)
	case "mp3":
		x, err = decodeMP3(data)
	case "ogg":
		x, err = decodeOggVorbis(data)
	case "flac":
		x, err = decodeFLAC(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	return float32ToInt16(x), nil
}

// MIME returns the upload content type for name.
func MIME(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

func kind(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "wav"
	case ".mp3":
		return "mp3"
	case ".ogg", ".oga":
		return "ogg"
	case ".flac":
		return "flac"
	}
	if len(data) < 4 {
		return ""
	}
	switch string(data[:4]) {
	case "RIFF":
		return "wav"
	case "OggS":
		return "ogg"
	case "fLaC":
		return "flac"
	}
	if string(data[:3]) == "ID3" || (data[0] == 0xFF && data[1]&0xE0 == 0xE0) {
		return "mp3"
	}
	return ""
}

func decodeWAV(data []byte) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = errors.New("empty wav")
		}
		return nil, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	ints := make([]int32, len(pb.Data))
	for i, v := range pb.Data {
		ints[i] = int32(v)
	}
	x := int32ToFloat32(ints, bd)

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return resampleLinear(downmixInterleaved(x, ch), sr, encoder.SampleRate), nil
}

func decodeMP3(data []byte) ([]float32, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	x := make([]float32, len(raw)/2)
	for i := range x {
		x[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	// go-mp3 always emits interleaved stereo
	x = downmixInterleaved(x, 2)

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	return resampleLinear(x, sr, encoder.SampleRate), nil
}

func decodeOggVorbis(data []byte) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return resampleLinear(downmixInterleaved(pcm, format.Channels), format.SampleRate, encoder.SampleRate), nil
}

func decodeFLAC(data []byte) ([]float32, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	ch := int(stream.Info.NChannels)
	bd := int(stream.Info.BitsPerSample)
	var x []float32
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		n := int(f.BlockSize)
		for i := 0; i < n; i++ {
			var sum float32
			for c := 0; c < ch; c++ {
				sum += float32(f.Subframes[c].Samples[i]) / float32(int64(1)<<(bd-1))
			}
			x = append(x, sum/float32(ch))
		}
	}
	return resampleLinear(x, int(stream.Info.SampleRate), encoder.SampleRate), nil
}

func int32ToFloat32(data []int32, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func float32ToInt16(x []float32) []int16 {
	out := make([]int16, len(x))
	for i, v := range x {
		out[i] = int16(clamp(float64(v), -1.0, 1.0) * 32767)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
