package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/internal/executor/dto"
	pipeline "golang-stock-suggester/internal/executor/service"
	schedulerconfig "golang-stock-suggester/internal/scheduler/config"
	scheduler "golang-stock-suggester/internal/scheduler/service"
	"golang-stock-suggester/pkg/logger"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	mu        sync.Mutex
	broadcast []string
	sent      []sentMessage
	sendErr   error
	updates   chan tgbotapi.Update
	stopOnce  sync.Once
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{updates: make(chan tgbotapi.Update, 10)}
}

func (m *fakeMessenger) SendMessage(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast = append(m.broadcast, text)
	return m.sendErr
}

func (m *fakeMessenger) SendMessageTo(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return m.sendErr
}

func (m *fakeMessenger) Updates(int) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *fakeMessenger) StopUpdates() {
	m.stopOnce.Do(func() { close(m.updates) })
}

func (m *fakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type fakeScheduler struct {
	status  scheduler.Status
	result  *dto.RunResult
	err     error
	gotOpts dto.RunOptions
	calls   int
}

func (s *fakeScheduler) RunNow(_ context.Context, opts dto.RunOptions) (*dto.RunResult, error) {
	s.calls++
	s.gotOpts = opts
	return s.result, s.err
}

func (s *fakeScheduler) Status() scheduler.Status { return s.status }

type fakeReader struct {
	latest []dto.Suggestion
	run    *entity.PipelineRun
	err    error
}

func (r *fakeReader) LatestBatch(context.Context) ([]dto.Suggestion, error) { return r.latest, r.err }

func (r *fakeReader) LatestRun(context.Context) (*entity.PipelineRun, error) { return r.run, r.err }

func newTestBot(allowed ...int64) (*Bot, *fakeMessenger, *fakeScheduler, *fakeReader) {
	messenger := newFakeMessenger()
	sched := &fakeScheduler{status: scheduler.Status{
		State: scheduler.StateArmed,
		Cadence: schedulerconfig.Scheduler{
			Enabled:   true,
			Frequency: schedulerconfig.FrequencyDaily,
			Time:      "09:00",
			Timezone:  "Asia/Kolkata",
		},
	}}
	reader := &fakeReader{}
	return NewBot(messenger, sched, reader, allowed, logger.NewNop()), messenger, sched, reader
}

func TestBot_HandleCommand_Analyze(t *testing.T) {
	bot, messenger, sched, _ := newTestBot(42)
	sched.result = &dto.RunResult{
		BatchID: "b1",
		Outcome: dto.OutcomeCompleted,
		Suggestions: []dto.Suggestion{
			{StockCode: "INFY", StockName: "Infosys Limited", AvgSentimentScore: 0.85, ArticleCount: 2},
		},
	}

	replies := bot.handleCommand(context.Background(), 42, "analyze", "0.8 5")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "*INFY*")
	assert.Equal(t, 0.8, sched.gotOpts.MinScore)
	assert.Equal(t, 5, sched.gotOpts.MaxSuggestions)

	sent := messenger.Sent()
	require.Len(t, sent, 1, "acknowledged before the run")
	assert.Equal(t, int64(42), sent[0].chatID)
}

func TestBot_HandleCommand_AnalyzeOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		args   string
		result *dto.RunResult
		err    error
		want   string
		runs   int
	}{
		{name: "bad score", args: "high", want: "Usage", runs: 0},
		{name: "score out of range", args: "1.5", want: "Usage", runs: 0},
		{name: "too many args", args: "0.5 5 7", want: "Usage", runs: 0},
		{name: "already running", err: pipeline.ErrRunInProgress, want: "already running", runs: 1},
		{name: "failed without result", err: errors.New("db down"), want: "Analysis failed", runs: 1},
		{name: "no suggestions", result: &dto.RunResult{Outcome: dto.OutcomeNoSuggestions}, want: "No stocks met the criteria", runs: 1},
		{name: "no articles", result: &dto.RunResult{Outcome: dto.OutcomeNoArticles}, want: "No news articles", runs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, _, sched, _ := newTestBot()
			sched.result, sched.err = tt.result, tt.err

			replies := bot.handleCommand(context.Background(), 1, "analyze", tt.args)
			require.Len(t, replies, 1)
			assert.Contains(t, replies[0], tt.want)
			assert.Equal(t, tt.runs, sched.calls)
		})
	}
}

func TestBot_HandleCommand_Recent(t *testing.T) {
	bot, _, _, reader := newTestBot()

	replies := bot.handleCommand(context.Background(), 1, "recent", "")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "No suggestions stored yet")

	reader.latest = []dto.Suggestion{{StockCode: "TCS", AvgSentimentScore: 0.75, ArticleCount: 1}}
	replies = bot.handleCommand(context.Background(), 1, "recent", "")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "*TCS*")

	reader.err = errors.New("boom")
	replies = bot.handleCommand(context.Background(), 1, "recent", "")
	assert.Contains(t, replies[0], "Could not load")
}

func TestBot_HandleCommand_Status(t *testing.T) {
	bot, _, sched, reader := newTestBot()
	next := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	sched.status.NextRun = &next
	reader.run = &entity.PipelineRun{
		BatchID:           "b7",
		Trigger:           string(dto.TriggerScheduled),
		Outcome:           string(dto.OutcomeNoSuggestions),
		ArticlesFetched:   12,
		ArticlesProcessed: 10,
	}

	replies := bot.handleCommand(context.Background(), 1, "status", "")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "State: armed")
	assert.Contains(t, replies[0], "daily at 09:00 (Asia/Kolkata)")
	assert.Contains(t, replies[0], "Next run:")
	assert.Contains(t, replies[0], "12 fetched, 10 processed")
	assert.Contains(t, replies[0], "no suggestions")
}

func TestBot_HandleCommand_HelpUnknownAndUnauthorized(t *testing.T) {
	bot, _, sched, _ := newTestBot(42)

	assert.Contains(t, bot.handleCommand(context.Background(), 42, "help", "")[0], "/analyze")
	assert.Contains(t, bot.handleCommand(context.Background(), 42, "start", "")[0], "/recent")
	assert.Contains(t, bot.handleCommand(context.Background(), 42, "sell", "")[0], "Unknown command")

	replies := bot.handleCommand(context.Background(), 7, "analyze", "")
	assert.Contains(t, replies[0], "not allowed")
	assert.Zero(t, sched.calls)
}

func TestBot_StartDispatchesCommands(t *testing.T) {
	bot, messenger, _, _ := newTestBot()
	bot.Start(context.Background())

	messenger.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 5}}}
	messenger.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/help",
		Chat:     &tgbotapi.Chat{ID: 5},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}}

	require.Eventually(t, func() bool { return len(messenger.Sent()) == 1 }, time.Second, time.Millisecond)
	bot.Stop()

	sent := messenger.Sent()
	assert.Equal(t, int64(5), sent[0].chatID)
	assert.Contains(t, sent[0].text, "Stock Suggester")
}

func TestDescribeCadence(t *testing.T) {
	tests := []struct {
		cfg  schedulerconfig.Scheduler
		want string
	}{
		{cfg: schedulerconfig.Scheduler{}, want: "disabled"},
		{cfg: schedulerconfig.Scheduler{Enabled: true, Frequency: schedulerconfig.FrequencyHourly}, want: "hourly (UTC)"},
		{
			cfg:  schedulerconfig.Scheduler{Enabled: true, Frequency: schedulerconfig.FrequencyTwiceDaily, Times: []string{"09:00", "15:30"}, Timezone: "Asia/Kolkata"},
			want: "twice daily at 09:00 and 15:30 (Asia/Kolkata)",
		},
		{
			cfg:  schedulerconfig.Scheduler{Enabled: true, Frequency: schedulerconfig.FrequencyWeekly, Weekday: "friday", Time: "16:45", Timezone: "UTC"},
			want: "weekly on friday at 16:45 (UTC)",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, describeCadence(tt.cfg))
	}
}
