package repository

import (
	"context"
	"errors"
	"time"

	"golang-stock-suggester/pkg/logger"
	pkgredis "golang-stock-suggester/pkg/redis"
)

// ErrRunLocked is returned when another process holds the pipeline run lock.
var ErrRunLocked = errors.New("pipeline run lock is held by another process")

// RunLockRepository guards pipeline runs across processes.
type RunLockRepository interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// NewRedisRunLockRepository creates a lock on key that expires after ttl.
func NewRedisRunLockRepository(client *pkgredis.Client, key string, ttl time.Duration, log *logger.Logger) RunLockRepository {
	return &redisRunLockRepository{client: client, key: key, ttl: ttl, logger: log}
}

type redisRunLockRepository struct {
	client *pkgredis.Client
	key    string
	ttl    time.Duration
	logger *logger.Logger
}

func (r *redisRunLockRepository) Acquire(ctx context.Context) (func(), error) {
	lock, err := r.client.AcquireLock(ctx, r.key, r.ttl)
	if errors.Is(err, pkgredis.ErrLockNotAcquired) {
		return nil, ErrRunLocked
	}
	if err != nil {
		return nil, err
	}

	return func() {
		// the run context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			r.logger.Warn("Failed to release run lock", logger.ErrorField(err), logger.StringField("key", r.key))
		}
	}, nil
}
