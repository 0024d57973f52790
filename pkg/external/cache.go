package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
)

const redisKeyPrefix = "pharmaguard:analysis:"

// CachingAnalysisService answers repeated (file, drug list) submissions from
// a bounded in-memory tier and an optional shared tier. Only successful
// payloads are cached.
type CachingAnalysisService struct {
	next   domain.AnalysisService
	memory *expirable.LRU[string, []byte]
	shared PayloadStore
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachingAnalysisService wraps next. shared may be nil.
func NewCachingAnalysisService(next domain.AnalysisService, config domain.CacheConfig, shared PayloadStore, logger *logrus.Logger) *CachingAnalysisService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	size := config.MaxItems
	if size <= 0 {
		size = 256
	}
	return &CachingAnalysisService{
		next:   next,
		memory: expirable.NewLRU[string, []byte](size, nil, config.TTL),
		shared: shared,
		ttl:    config.TTL,
		logger: logger,
	}
}

// Analyze implements domain.AnalysisService.
func (c *CachingAnalysisService) Analyze(ctx context.Context, file domain.UploadedFile, drugs string) ([]byte, error) {
	key := CacheKey(file, drugs)

	if payload, ok := c.memory.Get(key); ok {
		c.logger.WithField("cache_key", key).Debug("Analysis cache hit (memory)")
		return payload, nil
	}

	if c.shared != nil {
		payload, ok, err := c.shared.Get(ctx, key)
		if err != nil {
			c.logger.WithError(err).Warn("Shared analysis cache read failed")
		} else if ok {
			c.logger.WithField("cache_key", key).Debug("Analysis cache hit (shared)")
			c.memory.Add(key, payload)
			return payload, nil
		}
	}

	payload, err := c.next.Analyze(ctx, file, drugs)
	if err != nil {
		return nil, err
	}

	c.memory.Add(key, payload)
	if c.shared != nil {
		if err := c.shared.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.WithError(err).Warn("Failed to write shared analysis cache")
		}
	}
	return payload, nil
}

// Len returns the number of entries in the memory tier.
func (c *CachingAnalysisService) Len() int {
	return c.memory.Len()
}

// Purge empties the memory tier.
func (c *CachingAnalysisService) Purge() {
	c.memory.Purge()
}

// CacheKey identifies a submission by the file content and the exact drug
// string sent to the service.
func CacheKey(file domain.UploadedFile, drugs string) string {
	h := sha256.New()
	h.Write(file.Content)
	h.Write([]byte{0})
	h.Write([]byte(drugs))
	return hex.EncodeToString(h.Sum(nil))
}

// RedisPayloadStore is the shared cache tier backed by Redis.
type RedisPayloadStore struct {
	redis *redis.Client
}

type cachedPayload struct {
	Payload   json.RawMessage `json:"payload"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (c cachedPayload) expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// NewRedisPayloadStore connects to redisURL and verifies the connection.
func NewRedisPayloadStore(ctx context.Context, redisURL string) (*RedisPayloadStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPayloadStore{redis: client}, nil
}

// Get returns a cached payload. Corrupted or expired entries are removed and
// reported as misses.
func (s *RedisPayloadStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read analysis cache: %w", err)
	}

	var cached cachedPayload
	if err := json.Unmarshal(val, &cached); err != nil || cached.expired(time.Now()) {
		s.redis.Del(ctx, redisKeyPrefix+key)
		return nil, false, nil
	}
	return cached.Payload, true, nil
}

// Set stores payload for ttl.
func (s *RedisPayloadStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if !json.Valid(payload) {
		return fmt.Errorf("refusing to cache a non-JSON payload")
	}
	now := time.Now()
	entry := cachedPayload{Payload: payload, CachedAt: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis cache entry: %w", err)
	}
	return s.redis.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

// Close closes the Redis connection.
func (s *RedisPayloadStore) Close() error {
	return s.redis.Close()
}
