package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/internal/executor/dto"
	pipeline "golang-stock-suggester/internal/executor/service"
	schedulerconfig "golang-stock-suggester/internal/scheduler/config"
	scheduler "golang-stock-suggester/internal/scheduler/service"
	"golang-stock-suggester/pkg/config"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/telegram"
	"golang-stock-suggester/pkg/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const updatesTimeoutSeconds = 30

const helpText = `🤖 *Stock Suggester*

/analyze [min\_score] [max\_suggestions] - run the analysis now
/recent - show the latest suggestions
/status - show the schedule and the last run
/help - show this message`

// Messenger sends messages and receives bot updates.
type Messenger interface {
	telegram.Notifier
	Updates(timeoutSeconds int) tgbotapi.UpdatesChannel
	StopUpdates()
}

// Scheduler runs the pipeline on demand and reports the cadence.
type Scheduler interface {
	RunNow(ctx context.Context, opts dto.RunOptions) (*dto.RunResult, error)
	Status() scheduler.Status
}

// SuggestionReader reads stored results.
type SuggestionReader interface {
	LatestBatch(ctx context.Context) ([]dto.Suggestion, error)
	LatestRun(ctx context.Context) (*entity.PipelineRun, error)
}

// Bot answers chat commands. Only the configured chats may use it.
type Bot struct {
	client    Messenger
	scheduler Scheduler
	reader    SuggestionReader
	allowed   map[int64]struct{}
	logger    *logger.Logger
	wg        sync.WaitGroup
}

// NewBot creates a new Bot. An empty allowedChats list admits every chat.
func NewBot(client Messenger, sched Scheduler, reader SuggestionReader, allowedChats []int64, log *logger.Logger) *Bot {
	allowed := make(map[int64]struct{}, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = struct{}{}
	}
	return &Bot{
		client:    client,
		scheduler: sched,
		reader:    reader,
		allowed:   allowed,
		logger:    log,
	}
}

// Start polls for updates until ctx is done or Stop is called.
func (b *Bot) Start(ctx context.Context) {
	updates := b.client.Updates(updatesTimeoutSeconds)
	b.logger.Info("Telegram bot started")

	b.wg.Add(1)
	utils.GoSafe(func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				b.dispatch(ctx, update)
			}
		}
	})
}

// Stop stops polling and waits for in-flight commands.
func (b *Bot) Stop() {
	b.client.StopUpdates()
	b.wg.Wait()
	b.logger.Info("Telegram bot stopped")
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	command, args := msg.Command(), msg.CommandArguments()

	b.wg.Add(1)
	utils.GoSafe(func() {
		defer b.wg.Done()
		for _, reply := range b.handleCommand(ctx, chatID, command, args) {
			if err := b.client.SendMessageTo(chatID, reply); err != nil {
				b.logger.Warn("Failed to send reply", logger.ErrorField(err), logger.StringField("command", command))
			}
		}
	})
}

// handleCommand returns the replies to one command.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) []string {
	if !b.isAllowed(chatID) {
		b.logger.Warn("Rejected command from unknown chat", logger.Field("chat_id", chatID), logger.StringField("command", command))
		return []string{"⛔ This chat is not allowed to use the bot."}
	}

	switch strings.ToLower(command) {
	case "analyze":
		return b.analyze(ctx, chatID, args)
	case "recent":
		return b.recent(ctx)
	case "status":
		return []string{b.status(ctx)}
	case "help", "start":
		return []string{helpText}
	default:
		return []string{"Unknown command. Send /help for the list of commands."}
	}
}

func (b *Bot) isAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

func (b *Bot) analyze(ctx context.Context, chatID int64, args string) []string {
	opts, err := parseRunOptions(args)
	if err != nil {
		return []string{"Usage: /analyze [min\\_score 0-1] [max\\_suggestions 1-50]"}
	}

	if err := b.client.SendMessageTo(chatID, "🔎 Running analysis, this can take a few minutes..."); err != nil {
		b.logger.Warn("Failed to acknowledge analyze", logger.ErrorField(err))
	}

	result, err := b.scheduler.RunNow(ctx, opts)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return []string{"⏳ An analysis is already running. Try /recent in a few minutes."}
	}
	if err != nil {
		b.logger.Error("Analyze command failed", logger.ErrorField(err))
	}
	if result == nil {
		return []string{"⚠️ *Analysis failed*"}
	}
	return telegram.FormatRunResult(result)
}

func parseRunOptions(args string) (dto.RunOptions, error) {
	var opts dto.RunOptions
	fields := strings.Fields(args)
	if len(fields) > 2 {
		return opts, fmt.Errorf("too many arguments")
	}
	if len(fields) > 0 {
		score, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return opts, err
		}
		opts.MinScore = score
	}
	if len(fields) > 1 {
		limit, err := strconv.Atoi(fields[1])
		if err != nil {
			return opts, err
		}
		opts.MaxSuggestions = limit
	}
	return opts, config.Validate(&opts)
}

func (b *Bot) recent(ctx context.Context) []string {
	suggestions, err := b.reader.LatestBatch(ctx)
	if err != nil {
		b.logger.Error("Failed to load latest batch", logger.ErrorField(err))
		return []string{"⚠️ Could not load the latest suggestions."}
	}
	if len(suggestions) == 0 {
		return []string{"No suggestions stored yet. Send /analyze to run the analysis."}
	}
	return telegram.FormatSuggestions("Latest Suggestions", suggestions)
}

func (b *Bot) status(ctx context.Context) string {
	status := b.scheduler.Status()

	var sb strings.Builder
	sb.WriteString("⏱ *Scheduler*\n")
	sb.WriteString(fmt.Sprintf("State: %s\n", status.State))
	sb.WriteString(fmt.Sprintf("Cadence: %s\n", describeCadence(status.Cadence)))
	if status.NextRun != nil {
		sb.WriteString(fmt.Sprintf("Next run: %s\n", utils.PrettyDate(*status.NextRun)))
	}
	if status.LastRun != nil {
		sb.WriteString(fmt.Sprintf("Last run: %s (%s)\n", utils.PrettyDate(*status.LastRun), status.LastOutcome))
	}

	run, err := b.reader.LatestRun(ctx)
	switch {
	case err != nil:
		b.logger.Error("Failed to load latest run", logger.ErrorField(err))
	case run != nil:
		sb.WriteString("\n📋 *Latest run*\n")
		sb.WriteString(fmt.Sprintf("Trigger: %s\n", run.Trigger))
		sb.WriteString(fmt.Sprintf("Outcome: %s\n", strings.ReplaceAll(run.Outcome, "_", " ")))
		sb.WriteString(fmt.Sprintf("Articles: %d fetched, %d processed\n", run.ArticlesFetched, run.ArticlesProcessed))
		sb.WriteString(fmt.Sprintf("Suggestions: %d\n", run.SuggestionsCount))
	}
	return sb.String()
}

func describeCadence(cfg schedulerconfig.Scheduler) string {
	if !cfg.Enabled {
		return "disabled"
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	switch cfg.Frequency {
	case schedulerconfig.FrequencyHourly:
		return fmt.Sprintf("hourly (%s)", tz)
	case schedulerconfig.FrequencyTwiceDaily:
		return fmt.Sprintf("twice daily at %s (%s)", strings.Join(cfg.Times, " and "), tz)
	case schedulerconfig.FrequencyWeekly:
		return fmt.Sprintf("weekly on %s at %s (%s)", cfg.Weekday, cfg.Time, tz)
	default:
		return fmt.Sprintf("daily at %s (%s)", cfg.Time, tz)
	}
}
