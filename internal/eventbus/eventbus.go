// Package eventbus fans audit records out to in-process subscribers, such
// as the MQTT audit bridge.
package eventbus

import (
	"sync"

	"github.com/openvest/vestd/core/audit"
)

// Bus is a non-blocking fan-out of audit records. Slow subscribers drop
// records rather than stalling registry or claim operations.
type Bus interface {
	Publish(rec audit.Record)
	Subscribe() <-chan audit.Record
	Unsubscribe(<-chan audit.Record)
	Close()
}

type bus struct {
	mu     sync.RWMutex
	subs   []chan audit.Record
	closed bool
}

// New creates an empty bus.
func New() Bus { return &bus{} }

func (b *bus) Publish(rec audit.Record) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (b *bus) Subscribe() <-chan audit.Record {
	ch := make(chan audit.Record, 16)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

func (b *bus) Unsubscribe(sub <-chan audit.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

func (b *bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
