package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisPrefix namespaces ledger keys.
	DefaultRedisPrefix = "scoutchat:usage:"

	// maxTxRetries bounds optimistic retries when another writer touches the
	// same key between WATCH and EXEC.
	maxTxRetries = 10
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379/0")
	URL string

	// Prefix is prepended to every identity key (defaults to "scoutchat:usage:")
	Prefix string

	// TTL expires idle identities; zero keeps keys forever
	TTL time.Duration
}

// RedisStore keeps one key per identity in Redis.
// This is suitable for multi-instance deployments behind a load balancer.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(identity string) string {
	return s.prefix + identity
}

// read loads and decodes one key. Missing and corrupt values both yield nil.
func (s *RedisStore) read(ctx context.Context, c redis.Cmdable, key string) (*Record, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record from redis: %w", err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		slog.Warn("ignoring corrupt ledger record", "key", key, "error", err)
		return nil, nil
	}
	return rec, nil
}

func (s *RedisStore) Get(ctx context.Context, identity string) (*Record, error) {
	return s.read(ctx, s.client, s.key(identity))
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(rec.Identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set record in redis: %w", err)
	}
	return nil
}

// Update uses WATCH/MULTI so a concurrent write to the same identity aborts
// this transaction, which is then retried against the fresh value.
func (s *RedisStore) Update(ctx context.Context, identity string, fn UpdateFunc) (*Record, error) {
	key := s.key(identity)
	var result *Record

	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		data, err := EncodeRecord(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to update record in redis: %w", err)
	}

	return nil, fmt.Errorf("failed to update record in redis: too much contention on %s", identity)
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	var records []Record
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan redis keys: %w", err)
		}
		for _, key := range keys {
			rec, err := s.read(ctx, s.client, key)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			if rec.Identity == "" {
				rec.Identity = strings.TrimPrefix(key, s.prefix)
			}
			records = append(records, *rec)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sortRecords(records)
	return records, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
