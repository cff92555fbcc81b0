package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"deskrent/internal/app/middleware"
)

const defaultPrefix = "deskrent:idemp:"

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(opts Options) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// IdempotencyStore keeps command results in Redis with a TTL.
// Reserve writes a pending marker with SET NX; Save replaces it with the result.
type IdempotencyStore struct {
	rdb    goredis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewIdempotencyStore(rdb goredis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, prefix: defaultPrefix}
}

type idempotencyEntry struct {
	Pending    bool      `json:"pending,omitempty"`
	Payload    []byte    `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

var pendingMarker = []byte(`{"pending":true,"occurred_at":"0001-01-01T00:00:00Z"}`)

// releaseScript deletes the key only while it still holds the pending marker.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: get idempotency record: %w", err)
	}
	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: decode idempotency record: %w", err)
	}
	if entry.Pending {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return middleware.IdempotencyRecord{Key: key, Payload: entry.Payload, OccurredAt: entry.OccurredAt}, true, nil
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	reserved, err := s.rdb.SetNX(ctx, s.prefix+key, pendingMarker, s.ttl).Result()
	if err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("redis: reserve idempotency key: %w", err)
	}
	if reserved {
		return middleware.IdempotencyRecord{}, false, nil
	}
	rec, found, err := s.Get(ctx, key)
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	if !found {
		// Still pending, or expired between SETNX and GET.
		return middleware.IdempotencyRecord{}, false, middleware.ErrIdempotencyInProgress
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(idempotencyEntry{Payload: rec.Payload, OccurredAt: rec.OccurredAt})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.prefix+rec.Key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save idempotency record: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{s.prefix + key}, pendingMarker).Err(); err != nil {
		return fmt.Errorf("redis: release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
