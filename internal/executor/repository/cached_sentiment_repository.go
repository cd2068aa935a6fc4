package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang-stock-suggester/internal/executor/dto"

	"github.com/patrickmn/go-cache"
)

// cachedSentimentRepository memoizes results by the hash of the analyzed
// text. Neutral fallbacks are not cached so a transient failure is retried.
type cachedSentimentRepository struct {
	next  SentimentRepository
	cache *cache.Cache
}

// NewCachedSentimentRepository wraps next with an in-process result cache.
func NewCachedSentimentRepository(next SentimentRepository, ttl time.Duration) SentimentRepository {
	return &cachedSentimentRepository{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *cachedSentimentRepository) Analyze(ctx context.Context, text string) (*dto.SentimentResult, error) {
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if cached, found := r.cache.Get(key); found {
		result := *cached.(*dto.SentimentResult)
		return &result, nil
	}

	result, err := r.next.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	if !result.IsFallback() {
		stored := *result
		r.cache.SetDefault(key, &stored)
	}
	return result, nil
}

func (r *cachedSentimentRepository) IsConfigured() bool {
	return r.next.IsConfigured()
}

func (r *cachedSentimentRepository) Provider() dto.SentimentProvider {
	return r.next.Provider()
}

func (r *cachedSentimentRepository) ModelName() string {
	return r.next.ModelName()
}
