// Package reconcile cleans up objects that were uploaded to storage but
// never got a metadata record because the insert failed afterwards.
package reconcile

import (
	"context"
	"errors"
	"time"
)

// Orphan identifies an object that has no metadata record.
type Orphan struct {
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Queue accepts orphans for asynchronous cleanup.
type Queue interface {
	Enqueue(ctx context.Context, o Orphan) error
}

// Delivery is an orphan handed to the worker. Ack marks it as handled.
type Delivery struct {
	Orphan Orphan
	Ack    func(ctx context.Context) error
}

// Source yields queued orphans. Next blocks until one is available or ctx
// is done.
type Source interface {
	Next(ctx context.Context) (Delivery, error)
}

// ErrQueueFull is returned by MemoryQueue when its buffer is exhausted.
var ErrQueueFull = errors.New("orphan queue full")

// ErrClosed is returned once a queue has been closed.
var ErrClosed = errors.New("orphan queue closed")

// MemoryQueue is an in-process Queue and Source, used when no broker is
// configured. Orphans queued here are lost on restart.
type MemoryQueue struct {
	ch chan Orphan
}

// NewMemoryQueue returns a queue holding up to size pending orphans.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{ch: make(chan Orphan, size)}
}

// Enqueue never blocks; it fails with ErrQueueFull instead.
func (q *MemoryQueue) Enqueue(ctx context.Context, o Orphan) error {
	select {
	case q.ch <- o:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Next(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case o := <-q.ch:
		return Delivery{Orphan: o, Ack: func(context.Context) error { return nil }}, nil
	}
}

// Len reports how many orphans are waiting.
func (q *MemoryQueue) Len() int { return len(q.ch) }
