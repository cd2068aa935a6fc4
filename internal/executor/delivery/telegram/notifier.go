package telegram

import (
	"context"
	"errors"

	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/telegram"
)

// BatchNotifier broadcasts finished pipeline runs to the configured chats.
// It serves both as the direct event sink and as the stream consumer handler.
type BatchNotifier struct {
	notifier telegram.Notifier
	logger   *logger.Logger
}

// NewBatchNotifier creates a new BatchNotifier.
func NewBatchNotifier(notifier telegram.Notifier, log *logger.Logger) *BatchNotifier {
	return &BatchNotifier{notifier: notifier, logger: log}
}

// PublishBatchCompleted delivers the event immediately.
func (n *BatchNotifier) PublishBatchCompleted(ctx context.Context, event dto.BatchCompletedEvent) error {
	return n.HandleBatchCompleted(ctx, event)
}

// HandleBatchCompleted formats the event and sends every message part.
func (n *BatchNotifier) HandleBatchCompleted(ctx context.Context, event dto.BatchCompletedEvent) error {
	n.logger.Info("Broadcasting batch",
		logger.StringField("batch_id", event.BatchID),
		logger.StringField("outcome", string(event.Outcome)),
		logger.IntField("suggestions", event.SuggestionsCount))

	var errs []error
	for _, msg := range telegram.FormatBatchEvent(event) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.notifier.SendMessage(msg); err != nil {
			n.logger.Warn("Failed to broadcast batch message", logger.ErrorField(err), logger.StringField("batch_id", event.BatchID))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
