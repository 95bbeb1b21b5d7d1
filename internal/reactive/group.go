package reactive

import (
	"context"
	"fmt"
	"golang.org/x/sync/errgroup"
	"sync"
)

// Group runs a set of watchers sharing one context. The first watcher to fail
// cancels the others.
type Group struct {
	eg  *errgroup.Group
	ctx context.Context
	tr  *tracker
}

func NewGroup(ctx context.Context) *Group {
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{
		eg:  eg,
		ctx: ctx,
		tr:  &tracker{tasks: make(map[*task]struct{}), signal: make(chan struct{})},
	}
}

// Go starts fn in a new goroutine. Errors are prefixed with name.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	t := g.tr.add()
	ctx := context.WithValue(g.ctx, taskKey{}, t)
	g.eg.Go(func() error {
		defer t.done()
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// Wait blocks until every watcher returned and reports the first error.
func (g *Group) Wait() error {
	return g.eg.Wait()
}

// Settled reports whether no watcher is running and none has an unseen
// change on its sources.
func (g *Group) Settled() bool {
	ok, _ := g.tr.settled()
	return ok
}

// Settle blocks until the group is settled.
func (g *Group) Settle(ctx context.Context) error {
	for {
		ok, signal := g.tr.settled()
		if ok {
			return nil
		}
		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type taskKey struct{}

func taskFrom(ctx context.Context) *task {
	t, _ := ctx.Value(taskKey{}).(*task)
	return t
}

type tracker struct {
	mu     sync.Mutex
	tasks  map[*task]struct{}
	signal chan struct{}
}

func (tr *tracker) add() *task {
	t := &task{tr: tr}
	tr.mu.Lock()
	tr.tasks[t] = struct{}{}
	tr.mu.Unlock()
	return t
}

// broadcast must be called with mu held.
func (tr *tracker) broadcast() {
	close(tr.signal)
	tr.signal = make(chan struct{})
}

func (tr *tracker) settled() (bool, <-chan struct{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for t := range tr.tasks {
		if !t.suspended {
			return false, tr.signal
		}
		for _, c := range t.cursors {
			if c.state() == statePending {
				return false, tr.signal
			}
		}
	}
	return true, tr.signal
}

// task is the bookkeeping of one goroutine of a Group. A task counts as busy
// until it suspends on its sources.
type task struct {
	tr        *tracker
	suspended bool
	cursors   []cursor
}

func (t *task) suspend(cursors []cursor) {
	if t == nil {
		return
	}
	t.tr.mu.Lock()
	t.suspended = true
	t.cursors = cursors
	t.tr.broadcast()
	t.tr.mu.Unlock()
}

func (t *task) resume() {
	if t == nil {
		return
	}
	t.tr.mu.Lock()
	t.suspended = false
	t.cursors = nil
	t.tr.mu.Unlock()
}

func (t *task) done() {
	t.tr.mu.Lock()
	delete(t.tr.tasks, t)
	t.tr.broadcast()
	t.tr.mu.Unlock()
}
