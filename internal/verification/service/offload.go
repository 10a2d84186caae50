package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// offloader bounds how many collaborator calls run at once across all
// requests. A call holds its slot until it returns, even when the caller has
// already given up on it.
type offloader struct {
	sem *semaphore.Weighted
}

func newOffloader(workers int) *offloader {
	if workers < 1 {
		workers = 1
	}
	return &offloader{sem: semaphore.NewWeighted(int64(workers))}
}

// offload runs fn on a pooled worker and waits for it or for ctx. A panic in
// fn is returned as an error.
func offload[T any](ctx context.Context, o *offloader, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer o.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("offloaded call panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
