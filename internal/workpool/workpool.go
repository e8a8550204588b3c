// Package workpool runs a bounded number of concurrent tasks, used by the
// driver to fetch and unpack several dependencies into the source store at
// once without unbounded fan-out.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultSize returns the host CPU count, floored at 4.
func DefaultSize() int {
	n := runtime.NumCPU()
	if n < 4 {
		return 4
	}
	return n
}

// Pool runs tasks with at most Size running concurrently. The first task
// to return a non-nil error cancels the remaining ones and that error is
// what Wait returns.
type Pool struct {
	g   *errgroup.Group
	ctx context.Context
	sem *semaphore.Weighted
}

// New returns a Pool scoped to ctx with the given concurrency limit. A
// limit of 0 uses DefaultSize.
func New(ctx context.Context, limit int) *Pool {
	if limit <= 0 {
		limit = DefaultSize()
	}
	g, gctx := errgroup.WithContext(ctx)
	return &Pool{g: g, ctx: gctx, sem: semaphore.NewWeighted(int64(limit))}
}

// Go schedules fn to run once a concurrency slot is available. fn receives
// the pool's context, which is canceled as soon as any task fails.
func (p *Pool) Go(fn func(ctx context.Context) error) {
	p.g.Go(func() error {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)
		return fn(p.ctx)
	})
}

// Wait blocks until every scheduled task has returned, and returns the
// first error encountered, if any.
func (p *Pool) Wait() error {
	return p.g.Wait()
}
