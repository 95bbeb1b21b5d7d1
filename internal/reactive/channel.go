package reactive

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("channel closed")

// waker is a single slot wake up signal. Several readers may share one waker,
// in which case a wake means "at least one of them may have changed".
type waker chan struct{}

func newWaker() waker {
	return make(waker, 1)
}

func (w waker) wake() {
	select {
	case w <- struct{}{}:
	default:
	}
}

type state uint8

const (
	stateIdle state = iota
	statePending
	stateClosed
)

type Option[T any] func(c *Channel[T])

// WithRelease registers fn to be called with every value that is overwritten,
// dropped after close, or still held when the channel closes. The final value
// is released by Close itself, so readers draining a closed channel get a
// value fn has already seen. Callers that release destructively must take what
// they need before closing.
func WithRelease[T any](fn func(T)) Option[T] {
	return func(c *Channel[T]) {
		c.release = fn
	}
}

// Channel is a single slot, latest-value channel with any number of readers.
type Channel[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	closed  bool
	readers map[*Reader[T]]struct{}
	release func(T)
}

func NewChannel[T any](initial T, opts ...Option[T]) *Channel[T] {
	c := &Channel[T]{
		value:   initial,
		version: 1,
		readers: make(map[*Reader[T]]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write replaces the current value and wakes every reader. It never blocks.
// Writes after Close are ignored.
func (c *Channel[T]) Write(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.releaseValue(v)
		return
	}
	old := c.value
	c.value = v
	c.version++
	for r := range c.readers {
		r.wake.wake()
	}
	c.mu.Unlock()
	c.releaseValue(old)
}

// Close marks the channel as terminated and releases the last value. Readers
// drain that value and then observe ErrClosed. Close is idempotent.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for r := range c.readers {
		r.wake.wake()
	}
	last := c.value
	c.mu.Unlock()
	c.releaseValue(last)
}

func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Load returns the current value without marking it seen by anyone.
func (c *Channel[T]) Load() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Subscribe returns a new reader. A fresh reader has not seen the current
// value yet.
func (c *Channel[T]) Subscribe() *Reader[T] {
	return c.subscribe(newWaker())
}

func (c *Channel[T]) subscribe(w waker) *Reader[T] {
	r := &Reader[T]{ch: c, wake: w}
	c.mu.Lock()
	c.readers[r] = struct{}{}
	c.mu.Unlock()
	// the current value is unseen
	w.wake()
	return r
}

func (c *Channel[T]) cursor(w waker) cursor {
	return c.subscribe(w)
}

func (c *Channel[T]) releaseValue(v T) {
	if c.release != nil {
		c.release(v)
	}
}

// Reader tracks the last version of a channel it has seen.
type Reader[T any] struct {
	ch   *Channel[T]
	seen uint64
	wake waker
}

// Read returns the current value and marks it seen.
func (r *Reader[T]) Read() T {
	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()
	r.seen = r.ch.version
	return r.ch.value
}

// View calls fn with the current value while holding the channel lock and
// marks the value seen. fn must not retain the value past the call if the
// channel releases superseded values.
func (r *Reader[T]) View(fn func(T)) {
	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()
	r.seen = r.ch.version
	fn(r.ch.value)
}

// Changed reports whether a value newer than the last seen one exists.
func (r *Reader[T]) Changed() bool {
	return r.state() == statePending
}

// Wait blocks until a value newer than the last seen one exists. It returns
// ErrClosed once the channel is closed and its final value has been seen.
func (r *Reader[T]) Wait(ctx context.Context) error {
	return wait(ctx, r.wake, []cursor{r})
}

// Close detaches the reader from its channel.
func (r *Reader[T]) Close() {
	r.ch.mu.Lock()
	delete(r.ch.readers, r)
	r.ch.mu.Unlock()
}

func (r *Reader[T]) mark() {
	r.ch.mu.Lock()
	r.seen = r.ch.version
	r.ch.mu.Unlock()
}

func (r *Reader[T]) state() state {
	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()
	switch {
	case r.ch.version > r.seen:
		return statePending
	case r.ch.closed:
		return stateClosed
	default:
		return stateIdle
	}
}

// cursor is the type erased view of a Reader used by watchers.
type cursor interface {
	mark()
	state() state
	Close()
}

// wait blocks until one of cursors has a pending value, or every cursor is
// closed and drained.
func wait(ctx context.Context, w waker, cursors []cursor) error {
	for {
		closed := 0
		for _, c := range cursors {
			switch c.state() {
			case statePending:
				return nil
			case stateClosed:
				closed++
			}
		}
		if closed == len(cursors) {
			return ErrClosed
		}

		select {
		case <-w:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
