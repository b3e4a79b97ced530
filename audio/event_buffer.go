package audio

import (
	"sync/atomic"
)

type eventKind int

const (
	noteOn eventKind = iota
	noteOff
)

type event struct {
	kind     eventKind
	pitch    int
	offset   int // sample offset into the next buffer
	velocity int
	duration int // in samples, 0 holds the note until a note off
}

// eventBuffer is a lock-free spsc queue.
type eventBuffer struct {
	events      []event
	read, write atomic.Uint32
}

func newEventBuffer(size int) *eventBuffer {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer{events: make([]event, size)}
}

func (b *eventBuffer) full() bool {
	return b.write.Load()-b.read.Load() == uint32(len(b.events))
}

// tryPush reports false instead of waiting when the buffer is full.
func (b *eventBuffer) tryPush(ev event) bool {
	if b.full() {
		return false
	}
	b.store(ev)
	return true
}

func (b *eventBuffer) store(ev event) {
	write := b.write.Load()
	b.events[write%uint32(len(b.events))] = ev
	b.write.Store(write + 1)
}

// iter consumes events with an offset below untilOffset, or all of them
// when untilOffset is -1.
func (b *eventBuffer) iter(untilOffset int, f func(event)) {
	read := b.read.Load()
	write := b.write.Load()
	for read != write {
		ev := b.events[read%uint32(len(b.events))]
		if ev.offset >= untilOffset && untilOffset != -1 {
			break
		}
		f(ev)
		read++
	}
	b.read.Store(read)
}
