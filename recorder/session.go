package recorder

import (
	"sync"

	"intentdeck/audio"
)

// session is one open capture. The device callback only touches the
// chunk buffer; the stop channel ends the countdown goroutine.
type session struct {
	dev audio.CaptureDevice
	gen uint64

	mu     sync.Mutex
	chunks []byte

	stop     chan struct{}
	stopOnce sync.Once
	relOnce  sync.Once
}

func newSession(dev audio.CaptureDevice, gen uint64) *session {
	return &session{dev: dev, gen: gen, stop: make(chan struct{})}
}

func (s *session) append(data []byte, _ uint32) {
	s.mu.Lock()
	s.chunks = append(s.chunks, data...)
	s.mu.Unlock()
}

func (s *session) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

func (s *session) cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// release stops and closes the device exactly once.
func (s *session) release() {
	s.relOnce.Do(func() {
		s.dev.Stop()
		s.dev.ClearCallback()
		s.dev.Close()
	})
}
