package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gwas-risk-engine/internal/domain"
)

// RedisStore is the multi-instance GenotypeStore: sessions survive process
// restarts and are shared across replicas, and the TTL gives "cleared on
// session end" semantics without a reaper.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed genotype store
func NewRedisStore(cfg domain.SessionConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{redis: client, ttl: ttl}, nil
}

func genotypeKey(sessionID string) string {
	return "genotype:" + sessionID
}

// Put replaces the session's genotype wholesale and resets its TTL
func (s *RedisStore) Put(ctx context.Context, sessionID string, genotype domain.GenotypeMap) error {
	payload, err := json.Marshal(genotype)
	if err != nil {
		return fmt.Errorf("failed to marshal genotype: %w", err)
	}
	if err := s.redis.Set(ctx, genotypeKey(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store genotype: %w", err)
	}
	return nil
}

// Get returns the session's genotype, or ErrNotFound
func (s *RedisStore) Get(ctx context.Context, sessionID string) (domain.GenotypeMap, error) {
	val, err := s.redis.Get(ctx, genotypeKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get genotype: %w", err)
	}

	var genotype domain.GenotypeMap
	if err := json.Unmarshal([]byte(val), &genotype); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genotype: %w", err)
	}
	return genotype, nil
}

// Delete removes the session's genotype
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, genotypeKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete genotype: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
