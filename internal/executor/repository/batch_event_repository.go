package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/common"

	"github.com/redis/go-redis/v9"
)

// BatchEventRepository publishes pipeline batch events.
type BatchEventRepository interface {
	PublishBatchCompleted(ctx context.Context, event dto.BatchCompletedEvent) error
}

// NewRedisBatchEventRepository publishes events to the batch completed stream.
func NewRedisBatchEventRepository(client redis.Cmdable, maxLen int64) BatchEventRepository {
	return &redisBatchEventRepository{client: client, maxLen: maxLen}
}

type redisBatchEventRepository struct {
	client redis.Cmdable
	maxLen int64
}

func (r *redisBatchEventRepository) PublishBatchCompleted(ctx context.Context, event dto.BatchCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal batch event: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSuggestionBatchCompleted,
		MaxLen: r.maxLen,
		Approx: r.maxLen > 0,
		Values: map[string]interface{}{"payload": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish batch event: %w", err)
	}
	return nil
}
