package blob

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const urlPrefix = "blob:intentdeck/"

// Blob is an audio payload plus the PCM decoded from it for playback.
// PCM may be nil when the payload could not be decoded.
type Blob struct {
	Name       string
	MIME       string
	Data       []byte
	PCM        []int16
	SampleRate int
}

// Store hands out playback URLs for blobs. A URL resolves only between
// CreateURL and Revoke.
type Store struct {
	mu      sync.Mutex
	blobs   map[string]*Blob
	created int
	revoked int
}

func NewStore() *Store {
	return &Store{blobs: make(map[string]*Blob)}
}

func (s *Store) CreateURL(b *Blob) string {
	url := urlPrefix + uuid.NewString()
	s.mu.Lock()
	s.blobs[url] = b
	s.created++
	s.mu.Unlock()
	return url
}

func (s *Store) Resolve(url string) (*Blob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[url]
	return b, ok
}

// Revoke releases url. It reports false when url is unknown or was
// already revoked.
func (s *Store) Revoke(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[url]; !ok {
		return false
	}
	delete(s.blobs, url)
	s.revoked++
	return true
}

// Live is the number of URLs currently resolvable.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// Revocations is the number of successful Revoke calls.
func (s *Store) Revocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked
}

func IsURL(s string) bool {
	return strings.HasPrefix(s, urlPrefix)
}
