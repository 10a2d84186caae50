package bucket

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"kycgate/internal/ratelimit/models"
)

const defaultShardCount = 32

// InMemoryBucketStore implements BucketStore using sharded in-memory sliding
// windows. Keys hash to a fixed shard so unrelated clients do not contend on
// one lock. Counters are process-local.
type InMemoryBucketStore struct {
	shards []*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

// slidingWindow tracks admitted request timestamps in ascending order.
type slidingWindow struct {
	timestamps []time.Time
}

// Option configures an InMemoryBucketStore.
type Option func(*InMemoryBucketStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithShardCount sets the number of lock shards.
func WithShardCount(n int) Option {
	return func(s *InMemoryBucketStore) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

// New creates a new in-memory bucket store.
func New(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		shards: newShards(defaultShardCount),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{buckets: make(map[string]*slidingWindow)}
	}
	return shards
}

// Allow checks if a request is allowed and records it when it is.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	sw := sh.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		sh.buckets[key] = sw
	}
	sw.cleanup(now, window)
	count := len(sw.timestamps)

	if count >= limit {
		resetAt := now.Add(window)
		if count > 0 {
			resetAt = sw.timestamps[0].Add(window)
		}
		return &models.RateLimitResult{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Reset clears the rate limit counter for a key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.buckets, key)
	return nil
}

// GetCurrentCount returns the current request count for a key.
func (s *InMemoryBucketStore) GetCurrentCount(_ context.Context, key string, window time.Duration) (int, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sw := sh.buckets[key]
	if sw == nil {
		return 0, nil
	}
	sw.cleanup(s.now(), window)
	return len(sw.timestamps), nil
}

// Sweep drops windows with no timestamps left inside window. It returns the
// number of keys removed.
func (s *InMemoryBucketStore) Sweep(window time.Duration) int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, sw := range sh.buckets {
			sw.cleanup(now, window)
			if len(sw.timestamps) == 0 {
				delete(sh.buckets, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartJanitor sweeps idle windows every interval until ctx is done.
func (s *InMemoryBucketStore) StartJanitor(ctx context.Context, interval, window time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(window)
			}
		}
	}()
}

// Stats returns the total bucket count and the per-shard distribution.
func (s *InMemoryBucketStore) Stats() (int, []int) {
	perShard := make([]int, len(s.shards))
	total := 0
	for i, sh := range s.shards {
		sh.mu.Lock()
		perShard[i] = len(sh.buckets)
		sh.mu.Unlock()
		total += perShard[i]
	}
	return total, perShard
}

func (s *InMemoryBucketStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// cleanup drops timestamps at or before now-window.
func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
