package intent

import (
	"context"
	"sync"
	"time"
)

// FakeClassifier answers every request with a fixed intent or error after
// an optional delay.
type FakeClassifier struct {
	intent string
	err    error
	Delay  time.Duration

	mu    sync.Mutex
	calls []Payload
}

func NewFake(intent string, err error) *FakeClassifier {
	return &FakeClassifier{intent: intent, err: err}
}

func (f *FakeClassifier) Name() string { return "fake" }

func (f *FakeClassifier) Classify(ctx context.Context, p Payload) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{
		Recognition: Recognition{Intent: f.intent},
		StatusCode:  200,
		Metrics:     &NetworkMetrics{Total: f.Delay},
		Server:      "fake",
	}, nil
}

// Calls returns the payloads received so far.
func (f *FakeClassifier) Calls() []Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Payload(nil), f.calls...)
}
