package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestOffloadReturnsResult(t *testing.T) {
	o := newOffloader(2)
	v, err := offload(context.Background(), o, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestOffloadRecoversPanics(t *testing.T) {
	o := newOffloader(1)
	_, err := offload(context.Background(), o, func(context.Context) (int, error) { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// the slot is released after a panic
	v, err := offload(context.Background(), o, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestOffloadHonoursDeadline(t *testing.T) {
	o := newOffloader(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)
	_, err := offload(ctx, o, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOffloadBoundsConcurrency(t *testing.T) {
	const workers = 3
	o := newOffloader(workers)
	var running, peak atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 12; i++ {
		g.Go(func() error {
			_, err := offload(ctx, o, func(context.Context) (struct{}, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestOffloadPropagatesErrors(t *testing.T) {
	o := newOffloader(1)
	want := errors.New("sidecar down")
	_, err := offload(context.Background(), o, func(context.Context) (int, error) { return 0, want })
	require.ErrorIs(t, err, want)
}
