package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RedisStore shares entries between processes. Keys expire with the TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore connects and pings the server.
func NewRedisStore(opts RedisOptions, ttl time.Duration) (*RedisStore, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = "breadth"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisStore(client, opts.Prefix, ttl), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(symbol string) string {
	return s.prefix + ":series:" + symbol
}

func (s *RedisStore) Get(ctx context.Context, symbol string, requestedDays int) (Entry, bool, error) {
	data, err := s.client.Get(ctx, s.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		log.Printf("[WARN] corrupt cache entry for %s, ignoring: %v", symbol, err)
		return Entry{}, false, nil
	}
	if !e.Usable(s.now(), s.ttl, requestedDays) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return s.client.Set(ctx, s.key(e.Symbol), data, s.ttl).Err()
}

func (s *RedisStore) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":series:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Unlink(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
