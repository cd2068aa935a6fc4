package common

const (
	RedisStreamSuggestionBatchCompleted = "suggestion.batch.completed"

	RedisStreamGroup    = "suggester-group"
	RedisStreamConsumer = "suggester-consumer"

	RedisLockPipelineRun = "lock:suggestion.pipeline.run"
)
