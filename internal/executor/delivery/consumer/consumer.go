package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/common"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	readCount    = 10
	errorBackoff = time.Second
)

// BatchEventHandler handles a completed pipeline batch.
type BatchEventHandler interface {
	HandleBatchCompleted(ctx context.Context, event dto.BatchCompletedEvent) error
}

// RedisConsumer manages the consumption of batch events from a Redis stream.
type RedisConsumer struct {
	cfg      config.Consumer
	client   redis.Cmdable
	handler  BatchEventHandler
	logger   *logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(cfg config.Consumer, client redis.Cmdable, handler BatchEventHandler, log *logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		cfg:      cfg,
		client:   client,
		handler:  handler,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start creates the consumer group and begins the processing loops.
func (c *RedisConsumer) Start(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, common.RedisStreamSuggestionBatchCompleted, common.RedisStreamGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.consumeBatchEvents, common.RedisStreamSuggestionBatchCompleted, c.cfg.BlockTimeout+c.cfg.HandlerTimeout)

	if c.cfg.RetryInterval <= 0 {
		return nil
	}
	//handle retry
	c.RegisterTickerHandler(ctx, c.reclaimPending, c.cfg.RetryInterval, c.cfg.HandlerTimeout, common.RedisStreamSuggestionBatchCompleted+"-retry")
	return nil
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}

func (c *RedisConsumer) consumeBatchEvents(ctx context.Context) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamSuggestionBatchCompleted, ">"},
		Count:    readCount,
		Block:    c.cfg.BlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		c.logger.Error("Failed to read batch events", logger.ErrorField(err))
		c.backoff(ctx)
		return
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			c.handleMessage(ctx, msg)
		}
	}
}

// reclaimPending picks up messages another delivery left unacknowledged.
func (c *RedisConsumer) reclaimPending(ctx context.Context) {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamSuggestionBatchCompleted,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		MinIdle:  c.cfg.MaxIdle,
		Start:    "0-0",
		Count:    readCount,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			c.logger.Error("Failed to reclaim pending batch events", logger.ErrorField(err))
		}
		return
	}

	for _, msg := range messages {
		c.logger.Info("Retrying batch event", logger.StringField("message_id", msg.ID))
		c.handleMessage(ctx, msg)
	}
}

// handleMessage acknowledges handled and undecodable messages. Handler
// failures stay pending for reclaimPending.
func (c *RedisConsumer) handleMessage(ctx context.Context, msg redis.XMessage) {
	event, err := decodeBatchEvent(msg.Values)
	if err != nil {
		c.logger.Error("Dropping malformed batch event", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	err = utils.SafeCall(func() error {
		return c.handler.HandleBatchCompleted(ctx, event)
	})
	if err != nil {
		c.logger.Error("Failed to handle batch event",
			logger.ErrorField(err),
			logger.StringField("message_id", msg.ID),
			logger.StringField("batch_id", event.BatchID))
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *RedisConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, common.RedisStreamSuggestionBatchCompleted, common.RedisStreamGroup, id).Err(); err != nil {
		c.logger.Error("Failed to ack batch event", logger.ErrorField(err), logger.StringField("message_id", id))
	}
}

func (c *RedisConsumer) backoff(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-c.stopChan:
	case <-time.After(errorBackoff):
	}
}

func decodeBatchEvent(values map[string]interface{}) (dto.BatchCompletedEvent, error) {
	var event dto.BatchCompletedEvent
	raw, ok := values["payload"]
	if !ok {
		return event, errors.New("missing payload field")
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return event, fmt.Errorf("unexpected payload type %T", raw)
	}

	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal batch event: %w", err)
	}
	if event.BatchID == "" {
		return event, errors.New("batch event without batch id")
	}
	return event, nil
}
