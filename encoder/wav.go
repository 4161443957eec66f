package encoder

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavEncoder writes a 16 kHz mono S16 RIFF/WAVE payload in memory.
type WavEncoder struct {
	out         memFile
	enc         *wav.Encoder
	format      *audio.Format
	totalFrames uint64
	encodeTime  time.Duration
	started     bool
	closed      bool
	mu          sync.Mutex
}

func NewWav() *WavEncoder {
	e := &WavEncoder{
		format: &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
	}
	e.enc = wav.NewEncoder(&e.out, SampleRate, BitsPerSample, Channels, 1)
	return e
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()

	if err := e.writeLocked(block); err != nil {
		return err
	}
	e.totalFrames += uint64(len(block))
	e.encodeTime += time.Since(start)
	return nil
}

func (e *WavEncoder) writeLocked(block []int16) error {
	data := make([]int, len(block))
	for i, s := range block {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{Format: e.format, Data: data, SourceBitDepth: BitsPerSample}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav block: %w", err)
	}
	e.started = true
	return nil
}

// Close finalizes the RIFF sizes. With no blocks written it still emits
// the 44-byte header of an empty clip.
func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if !e.started {
		if err := e.writeLocked(nil); err != nil {
			return err
		}
	}
	return e.enc.Close()
}

func (e *WavEncoder) Bytes() []byte { return e.out.buf }

func (e *WavEncoder) TotalFrames() uint64 { return e.totalFrames }

func (e *WavEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}

func (e *WavEncoder) MIME() string { return "audio/wav" }

// memFile is the io.WriteSeeker the wav encoder needs to patch the RIFF
// header sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("memfile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memfile: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
