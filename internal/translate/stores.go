package translate

import (
	"context"
	"errors"

	"github.com/SebastianCl/letra-cancion/internal/store"
	"github.com/SebastianCl/letra-cancion/pkg/redis"
)

// RedisStore mirrors translations into redis so they survive restarts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	v, err := s.client.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis read failed")
		return "", false
	}
	return v, v != ""
}

func (s *RedisStore) Put(ctx context.Context, key, value string) {
	if err := s.client.Set(ctx, key, value); err != nil {
		logger.Warn().Err(err).Msg("Redis write failed")
	}
}

// FileStore adapts the flat-file store for use without a redis server.
type FileStore struct {
	fs *store.FileStore
}

func NewFileStore(path string) (*FileStore, error) {
	fs, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{fs: fs}, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool) {
	v, err := s.fs.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn().Err(err).Msg("File store read failed")
		}
		return "", false
	}
	return v, true
}

func (s *FileStore) Put(_ context.Context, key, value string) {
	if err := s.fs.Put(key, value); err != nil {
		logger.Warn().Err(err).Msg("File store write failed")
	}
}
