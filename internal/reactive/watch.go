package reactive

import (
	"context"
	"errors"
)

// Source is a channel that can be watched.
type Source interface {
	cursor(w waker) cursor
}

// Watch runs f once with every source marked seen, then again each time any
// source changes. f reads the sources itself through Channel.Load. Watch
// returns f's first error, the context error, or nil once every source is
// closed and drained.
func Watch(ctx context.Context, sources []Source, f func() error) error {
	w := newWaker()
	cursors := make([]cursor, len(sources))
	for i, s := range sources {
		cursors[i] = s.cursor(w)
	}
	return run(ctx, w, cursors, func() error {
		for _, c := range cursors {
			c.mark()
		}
		return f()
	})
}

func Watch1[A any](ctx context.Context, a *Channel[A], f func(A) error) error {
	w := newWaker()
	ra := a.subscribe(w)
	return run(ctx, w, []cursor{ra}, func() error {
		return f(ra.Read())
	})
}

func Watch2[A, B any](ctx context.Context, a *Channel[A], b *Channel[B], f func(A, B) error) error {
	w := newWaker()
	ra, rb := a.subscribe(w), b.subscribe(w)
	return run(ctx, w, []cursor{ra, rb}, func() error {
		return f(ra.Read(), rb.Read())
	})
}

func Watch3[A, B, C any](ctx context.Context, a *Channel[A], b *Channel[B], c *Channel[C], f func(A, B, C) error) error {
	w := newWaker()
	ra, rb, rc := a.subscribe(w), b.subscribe(w), c.subscribe(w)
	return run(ctx, w, []cursor{ra, rb, rc}, func() error {
		return f(ra.Read(), rb.Read(), rc.Read())
	})
}

func run(ctx context.Context, w waker, cursors []cursor, step func() error) error {
	defer func() {
		for _, c := range cursors {
			c.Close()
		}
	}()

	t := taskFrom(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return err
		}

		t.suspend(cursors)
		err := wait(ctx, w, cursors)
		t.resume()
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
