package main

import (
	"sync"

	"intentdeck/beep"
	"intentdeck/recorder"
)

// feedback sits between the recorder and the front end. It drops
// snapshots that arrive after a newer one, plays the cue for each
// transition and forwards the rest.
type feedback struct {
	forward func(recorder.Snapshot)

	mu   sync.Mutex
	last recorder.Snapshot
}

func newFeedback(forward func(recorder.Snapshot)) *feedback {
	return &feedback{forward: forward}
}

func (f *feedback) StateChanged(s recorder.Snapshot) {
	f.mu.Lock()
	if s.Seq <= f.last.Seq {
		f.mu.Unlock()
		return
	}
	prev := f.last
	f.last = s
	f.mu.Unlock()

	if cue, ok := cueFor(prev, s); ok {
		beep.Play(cue)
	}
	if f.forward != nil {
		f.forward(s)
	}
}

func cueFor(prev, s recorder.Snapshot) (beep.Sound, bool) {
	switch {
	case s.Err != nil && s.Err != prev.Err:
		return beep.Error, true
	case s.State == recorder.Recording && prev.State != recorder.Recording:
		return beep.Start, true
	case s.State == recorder.Recording && s.Countdown < prev.Countdown:
		return beep.Tick, true
	case prev.State == recorder.Recording && s.State == recorder.Ready:
		return beep.End, true
	}
	return 0, false
}
