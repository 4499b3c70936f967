package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed cache store. Each generation is one
// hash keyed by URL; a set tracks the generation names.
func NewRedis(cfg *RedisConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "assetcache:"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) genKey(generation string) string { return s.prefix + "gen:" + generation }
func (s *redisStore) setKey() string                  { return s.prefix + "generations" }

func (s *redisStore) Match(ctx context.Context, generation, url string) (Entry, error) {
	raw, err := s.client.HGet(ctx, s.genKey(generation), url).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

func (s *redisStore) Put(ctx context.Context, generation string, e Entry) error {
	return s.PutAll(ctx, generation, []Entry{e})
}

func (s *redisStore) PutAll(ctx context.Context, generation string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	fields := make([]interface{}, 0, len(entries)*2)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.URL, err)
		}
		fields = append(fields, e.URL, data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.genKey(generation), fields...)
		pipe.SAdd(ctx, s.setKey(), generation)
		return nil
	})
	return err
}

func (s *redisStore) Generations(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *redisStore) DeleteGeneration(ctx context.Context, generation string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.genKey(generation))
		pipe.SRem(ctx, s.setKey(), generation)
		return nil
	})
	return err
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
