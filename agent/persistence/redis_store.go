package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/roundtable/internal/tlsutil"
)

// DefaultKeyPrefix prefixes every Redis transcript key.
const DefaultKeyPrefix = "roundtable:transcript:"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	// TLS enables a hardened client TLS config.
	TLS bool

	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string
	// TTL expires a session's transcript after its last append. Zero keeps it.
	TTL time.Duration
}

// RedisStore stores each session's transcript as a Redis list of JSON entries.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	ro := &redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	}
	if opts.TLS {
		ro.TLSConfig = tlsutil.ClientConfig(opts.Addr)
	}
	client := redis.NewClient(ro)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: prefix, ttl: opts.TTL}
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Append implements TranscriptStore.
func (s *RedisStore) Append(ctx context.Context, sessionID string, e Entry) error {
	e, err := prepare(sessionID, e)
	if err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// List implements TranscriptStore.
func (s *RedisStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	items, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Ping implements TranscriptStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements TranscriptStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
