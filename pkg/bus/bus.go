// Package bus holds the in-memory queues that connect the relay stages:
// a strict-FIFO dispatch queue drained by the single sender worker, a job
// queue feeding the conversational worker pool, and a handoff inbox for the
// facade's long-poll endpoint.
package bus

import (
	"context"
	"sync"
)

// ---------------------------------------------------------------------------
// fifo — bounded, order-preserving, context-aware queue
// ---------------------------------------------------------------------------

// fifo is a bounded FIFO. Enqueue applies backpressure when full instead of
// dropping or reordering; Consume blocks until a job or cancellation.
type fifo[T any] struct {
	ch chan T
}

func newFIFO[T any](size int) fifo[T] {
	if size <= 0 {
		size = 256
	}
	return fifo[T]{ch: make(chan T, size)}
}

// Enqueue appends a job, blocking while the queue is full. Returns false if
// ctx is cancelled before space frees up.
func (q fifo[T]) Enqueue(ctx context.Context, job T) bool {
	select {
	case q.ch <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Consume removes and returns the oldest job, blocking while the queue is
// empty. Returns false if ctx is cancelled first.
func (q fifo[T]) Consume(ctx context.Context) (T, bool) {
	select {
	case job := <-q.ch:
		return job, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Depth returns the number of queued jobs.
func (q fifo[T]) Depth() int { return len(q.ch) }

// ---------------------------------------------------------------------------
// DispatchQueue — outbound segments, one consumer
// ---------------------------------------------------------------------------

// DispatchQueue is the global outbound FIFO. A single consumer drains it in
// insertion order, so per-recipient segment order is preserved end to end.
type DispatchQueue struct {
	fifo[OutboundJob]
}

// NewDispatchQueue creates a dispatch queue with the given capacity.
func NewDispatchQueue(size int) *DispatchQueue {
	return &DispatchQueue{newFIFO[OutboundJob](size)}
}

// ---------------------------------------------------------------------------
// ReplyQueue — inbound jobs for the conversational worker pool
// ---------------------------------------------------------------------------

// ReplyQueue feeds the conversational worker pool. Workers block on Consume;
// there is no busy-polling when the queue is empty.
type ReplyQueue struct {
	fifo[InboundJob]
}

// NewReplyQueue creates a reply queue with the given capacity.
func NewReplyQueue(size int) *ReplyQueue {
	return &ReplyQueue{newFIFO[InboundJob](size)}
}

// ---------------------------------------------------------------------------
// Inbox — handoff of fresh inbound items to one waiting subscriber
// ---------------------------------------------------------------------------

// Inbox hands freshly ingested inbound items to facade callers. Each item is
// consumed by at most one receiver (a handoff, not a broadcast). When no one
// is reading and the buffer fills, the oldest item is dropped so ingestion
// never stalls on an absent API consumer.
type Inbox struct {
	ch chan InboundItem
	mu sync.Mutex
}

// NewInbox creates an inbox with the given buffer size.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 64
	}
	return &Inbox{ch: make(chan InboundItem, size)}
}

// Publish offers an item to subscribers. Drop-oldest under pressure.
func (in *Inbox) Publish(item InboundItem) {
	in.mu.Lock()
	defer in.mu.Unlock()

	select {
	case in.ch <- item:
		return
	default:
	}

	// Buffer full — evict the oldest and retry once.
	select {
	case <-in.ch:
	default:
	}
	select {
	case in.ch <- item:
	default:
	}
}

// Receive waits for the next item with a bounded wait. Returns false when
// ctx expires with no new message.
func (in *Inbox) Receive(ctx context.Context) (InboundItem, bool) {
	select {
	case item := <-in.ch:
		return item, true
	case <-ctx.Done():
		return InboundItem{}, false
	}
}

// Depth returns the number of undelivered items.
func (in *Inbox) Depth() int { return len(in.ch) }
