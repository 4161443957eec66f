package display

import (
	"context"
	"sync"
	"time"

	"intentdeck/intent"
)

const DefaultDelay = time.Second

type Status int

const (
	Empty Status = iota
	Analyzing
	Showing
)

func (s Status) String() string {
	switch s {
	case Analyzing:
		return "analyzing"
	case Showing:
		return "showing"
	}
	return "empty"
}

type View struct {
	Status  Status
	Result  intent.Recognition
	ShownAt time.Time
}

// Display holds the latest recognition. Each notification shows an
// analyzing state for a fixed delay before the result replaces the
// previous one; a newer notification cancels a pending one.
type Display struct {
	delay    time.Duration
	onChange func(View)

	mu      sync.Mutex
	view    View
	pending *time.Timer
	seq     uint64
	closed  bool
}

func New(delay time.Duration, onChange func(View)) *Display {
	if delay < 0 {
		delay = 0
	}
	if onChange == nil {
		onChange = func(View) {}
	}
	return &Display{delay: delay, onChange: onChange}
}

func (d *Display) Notify(r intent.Recognition) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.seq++
	seq := d.seq
	if d.pending != nil {
		d.pending.Stop()
	}
	d.view.Status = Analyzing
	v := d.view
	d.pending = time.AfterFunc(d.delay, func() { d.show(seq, r) })
	d.mu.Unlock()

	d.onChange(v)
}

func (d *Display) show(seq uint64, r intent.Recognition) {
	d.mu.Lock()
	if d.seq != seq || d.closed {
		d.mu.Unlock()
		return
	}
	if r.Entities == nil {
		r.Entities = []intent.Entity{}
	}
	d.view = View{Status: Showing, Result: r, ShownAt: time.Now()}
	d.pending = nil
	v := d.view
	d.mu.Unlock()

	d.onChange(v)
}

// Run feeds recognitions from ch into Notify until ctx ends or ch closes.
func (d *Display) Run(ctx context.Context, ch <-chan intent.Recognition) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			d.Notify(r)
		}
	}
}

func (d *Display) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Close drops any pending result.
func (d *Display) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
