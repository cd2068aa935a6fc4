package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"
)

// fakeStream records acknowledgements. Other commands are not expected.
type fakeStream struct {
	redis.Cmdable
	acked []string
}

func (f *fakeStream) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

type recordingHandler struct {
	events []dto.BatchCompletedEvent
	err    error
	panics bool
}

func (h *recordingHandler) HandleBatchCompleted(_ context.Context, event dto.BatchCompletedEvent) error {
	if h.panics {
		panic("formatter exploded")
	}
	h.events = append(h.events, event)
	return h.err
}

func newTestConsumer(handler BatchEventHandler) (*RedisConsumer, *fakeStream) {
	stream := &fakeStream{}
	return NewRedisConsumer(config.Consumer{}, stream, handler, logger.NewNop()), stream
}

func TestDecodeBatchEvent(t *testing.T) {
	payload := `{"batch_id":"b1","trigger":"scheduled","outcome":"completed","suggestions_count":1,"suggestions":[{"stock_code":"INFY"}]}`

	event, err := decodeBatchEvent(map[string]interface{}{"payload": payload})
	require.NoError(t, err)
	assert.Equal(t, "b1", event.BatchID)
	assert.Equal(t, dto.TriggerScheduled, event.Trigger)
	assert.Equal(t, dto.OutcomeCompleted, event.Outcome)
	require.Len(t, event.Suggestions, 1)
	assert.Equal(t, "INFY", event.Suggestions[0].StockCode)

	event, err = decodeBatchEvent(map[string]interface{}{"payload": []byte(payload)})
	require.NoError(t, err)
	assert.Equal(t, "b1", event.BatchID)

	for name, values := range map[string]map[string]interface{}{
		"missing":      {},
		"wrong type":   {"payload": 42},
		"invalid json": {"payload": "{"},
		"no batch id":  {"payload": `{"outcome":"completed"}`},
	} {
		_, err := decodeBatchEvent(values)
		assert.Error(t, err, name)
	}
}

func TestRedisConsumer_HandleMessage(t *testing.T) {
	handler := &recordingHandler{}
	consumer, stream := newTestConsumer(handler)

	consumer.handleMessage(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"payload": `{"batch_id":"b1","outcome":"no_articles"}`},
	})

	require.Len(t, handler.events, 1)
	assert.Equal(t, dto.OutcomeNoArticles, handler.events[0].Outcome)
	assert.Equal(t, []string{"1-0"}, stream.acked)
}

func TestRedisConsumer_HandleMessageFailures(t *testing.T) {
	t.Run("malformed payload is acked and dropped", func(t *testing.T) {
		handler := &recordingHandler{}
		consumer, stream := newTestConsumer(handler)

		consumer.handleMessage(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]interface{}{"payload": "not json"}})
		assert.Empty(t, handler.events)
		assert.Equal(t, []string{"2-0"}, stream.acked)
	})

	t.Run("handler error stays pending", func(t *testing.T) {
		handler := &recordingHandler{err: errors.New("telegram down")}
		consumer, stream := newTestConsumer(handler)

		consumer.handleMessage(context.Background(), redis.XMessage{ID: "3-0", Values: map[string]interface{}{"payload": `{"batch_id":"b3"}`}})
		assert.Len(t, handler.events, 1)
		assert.Empty(t, stream.acked)
	})

	t.Run("handler panic stays pending", func(t *testing.T) {
		consumer, stream := newTestConsumer(&recordingHandler{panics: true})

		assert.NotPanics(t, func() {
			consumer.handleMessage(context.Background(), redis.XMessage{ID: "4-0", Values: map[string]interface{}{"payload": `{"batch_id":"b4"}`}})
		})
		assert.Empty(t, stream.acked)
	})
}
