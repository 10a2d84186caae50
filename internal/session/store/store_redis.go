package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"kycgate/internal/session/models"
	"kycgate/pkg/platform/sentinel"
)

// DefaultRedisKey is the sorted set holding live sessions scored by issue time.
const DefaultRedisKey = "kyc:sessions"

// KEYS[1] set; ARGV[1] exclusive expiry cutoff, ARGV[2] max, ARGV[3] score, ARGV[4] token
var insertScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[4])
return 1
`)

// KEYS[1] set; ARGV[1] exclusive expiry cutoff, ARGV[2] "1" to remove, ARGV[3] token
var lookupScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if ARGV[2] == "1" then
  return redis.call("ZREM", KEYS[1], ARGV[3])
end
if redis.call("ZSCORE", KEYS[1], ARGV[3]) then
  return 1
end
return 0
`)

// RedisStore shares live sessions between server instances.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: DefaultRedisKey}
}

func (s *RedisStore) Insert(ctx context.Context, sess models.Session, now time.Time, ttl time.Duration, max int) error {
	ok, err := insertScript.Run(ctx, s.client, []string{s.key},
		expiryCutoff(now, ttl), max, sess.IssuedAt.UnixMicro(), sess.Token).Int()
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if ok == 0 {
		return sentinel.ErrCapacity
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, token string, now time.Time, ttl time.Duration) (bool, error) {
	return s.lookup(ctx, token, now, ttl, false)
}

func (s *RedisStore) Take(ctx context.Context, token string, now time.Time, ttl time.Duration) (bool, error) {
	return s.lookup(ctx, token, now, ttl, true)
}

func (s *RedisStore) Count(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	n, err := s.client.ZCount(ctx, s.key, strconv.FormatInt(now.Add(-ttl).UnixMicro(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) lookup(ctx context.Context, token string, now time.Time, ttl time.Duration, remove bool) (bool, error) {
	flag := "0"
	if remove {
		flag = "1"
	}
	n, err := lookupScript.Run(ctx, s.client, []string{s.key}, expiryCutoff(now, ttl), flag, token).Int()
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return n == 1, nil
}

// expiryCutoff is the exclusive score bound below which sessions have expired.
func expiryCutoff(now time.Time, ttl time.Duration) string {
	return "(" + strconv.FormatInt(now.Add(-ttl).UnixMicro(), 10)
}
