//go:build integration

package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/pkg/testutil/containers"
)

func TestRedisBucketStoreIntegration(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	rc.Flush(t)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewRedis(rc.Client.Client, clock.Now)
	ctx := context.Background()

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		const callers = 20
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := store.Allow(ctx, "kyc:verify:198.51.100.4", testLimit, testWindow)
				if !assert.NoError(t, err) {
					return
				}
				if res.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, testLimit, allowed)

		count, err := store.GetCurrentCount(ctx, "kyc:verify:198.51.100.4", testWindow)
		require.NoError(t, err)
		assert.Equal(t, testLimit, count)
	})

	t.Run("reset clears the window", func(t *testing.T) {
		require.NoError(t, store.Reset(ctx, "kyc:verify:198.51.100.4"))
		res, err := store.Allow(ctx, "kyc:verify:198.51.100.4", testLimit, testWindow)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}
