package bucket

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkAllow measures single-threaded throughput
func BenchmarkAllow(b *testing.B) {
	store := New()
	ctx := context.Background()

	for b.Loop() {
		_, _ = store.Allow(ctx, "bench-key", 1000, time.Minute)
	}
}

// BenchmarkAllow_HighCardinality measures performance with many unique client keys
func BenchmarkAllow_HighCardinality(b *testing.B) {
	store := New()
	ctx := context.Background()

	for i := 0; b.Loop(); i++ {
		key := fmt.Sprintf("kyc:verify:10.0.%d.%d", (i/256)%256, i%256)
		_, _ = store.Allow(ctx, key, 5, 10*time.Second)
	}
}

// BenchmarkShardDistribution reports how evenly client keys spread across shards
func BenchmarkShardDistribution(b *testing.B) {
	store := New()
	ctx := context.Background()

	for i := range 10000 {
		key := fmt.Sprintf("kyc:verify:10.%d.%d.1", i/256, i%256)
		_, _ = store.Allow(ctx, key, 5, time.Minute)
	}

	total, perShard := store.Stats()
	var lo, hi int
	for i, count := range perShard {
		if i == 0 || count < lo {
			lo = count
		}
		if count > hi {
			hi = count
		}
	}
	b.Logf("buckets=%d min=%d max=%d", total, lo, hi)
}
