package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrNoSyllabus is returned when an owner has not uploaded a syllabus yet.
var ErrNoSyllabus = errors.New("no syllabus uploaded")

// SyllabusStore keeps the last uploaded syllabus text of every owner.
type SyllabusStore interface {
	Put(ctx context.Context, owner, text string) error
	Get(ctx context.Context, owner string) (string, error)
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func syllabusKey(owner string) string {
	return fmt.Sprintf("qgen:syllabus:%s", owner)
}

func (s *RedisStore) Put(ctx context.Context, owner, text string) error {
	return s.client.Set(ctx, syllabusKey(owner), text, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, owner string) (string, error) {
	text, err := s.client.Get(ctx, syllabusKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSyllabus
	}
	return text, err
}

// MemoryStore is the single-instance fallback when Redis is not configured.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, ttl*2)}
}

func (s *MemoryStore) Put(_ context.Context, owner, text string) error {
	s.cache.SetDefault(owner, text)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, owner string) (string, error) {
	v, ok := s.cache.Get(owner)
	if !ok {
		return "", ErrNoSyllabus
	}
	return v.(string), nil
}
