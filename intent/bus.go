package intent

import "sync"

// Bus broadcasts recognitions to any number of subscribers. Each
// subscriber holds at most one pending value; a slow reader sees only the
// latest recognition and Publish never blocks.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Recognition
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Recognition)}
}

// Subscribe returns a channel of recognitions and a cancel func that
// unsubscribes and closes the channel.
func (b *Bus) Subscribe() (<-chan Recognition, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Recognition, 1)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(r Recognition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- r:
			continue
		default:
		}
		// replace the stale pending value
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r:
		default:
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
