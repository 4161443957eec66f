package intent

import (
	"context"
	"net/http"
	"time"
)

const (
	// Unknown is reported when the endpoint answers without an intent.
	Unknown = "Unknown"
	// ErrorPlaceholder is shown in place of an intent when analysis fails.
	ErrorPlaceholder = "Error processing audio"

	// UploadFilename is the multipart filename sent for every payload,
	// whatever its real container.
	UploadFilename = "recorded_audio.wav"
)

type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Recognition is an immutable analysis outcome.
type Recognition struct {
	Intent   string
	Entities []Entity
	Failed   bool
}

type Payload struct {
	Name string
	MIME string
	Data []byte
}

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

type Result struct {
	Recognition
	StatusCode int
	Metrics    *NetworkMetrics
	Server     string
}

type Classifier interface {
	Name() string
	Classify(ctx context.Context, p Payload) (*Result, error)
}

// Submit classifies p and always yields a displayable recognition. On
// failure the recognition carries ErrorPlaceholder and the cause is
// returned alongside for logging.
func Submit(ctx context.Context, c Classifier, p Payload) (Recognition, *Result, error) {
	res, err := c.Classify(ctx, p)
	if err != nil {
		return Recognition{Intent: ErrorPlaceholder, Failed: true}, nil, err
	}
	rec := res.Recognition
	if rec.Intent == "" {
		rec.Intent = Unknown
	}
	if rec.Entities == nil {
		rec.Entities = []Entity{}
	}
	return rec, res, nil
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
