package main

import (
	"context"
	"fmt"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/delivery/consumer"
	tgdelivery "golang-stock-suggester/internal/executor/delivery/telegram"
	"golang-stock-suggester/internal/executor/repository"
	"golang-stock-suggester/internal/executor/service"
	schedulerservice "golang-stock-suggester/internal/scheduler/service"
	"golang-stock-suggester/pkg/common"
	pkgconfig "golang-stock-suggester/pkg/config"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/postgres"
	"golang-stock-suggester/pkg/redis"
	"golang-stock-suggester/pkg/sqlite"
	"golang-stock-suggester/pkg/telegram"

	"gorm.io/gorm"
)

// app holds the wired components of the suggester service.
type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *gorm.DB
	redis     *redis.Client
	telegram  *telegram.Client
	pipeline  service.SuggestionPipeline
	scheduler schedulerservice.SchedulerService
}

func openDatabase(cfg pkgconfig.Database) (*gorm.DB, error) {
	if cfg.Driver == "postgres" {
		db, err := postgres.NewDB(postgres.Config{
			Host:            cfg.Host,
			Port:            cfg.Port,
			User:            cfg.User,
			Password:        cfg.Password,
			DBName:          cfg.DBName,
			SSLMode:         cfg.SSLMode,
			TimeZone:        cfg.TimeZone,
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			LogLevel:        cfg.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		return db.DB, nil
	}
	return sqlite.NewDB(sqlite.Config{Path: cfg.Path, LogLevel: cfg.LogLevel})
}

// newApp wires every component. Redis and Telegram are optional; when they are
// configured but unreachable the service runs without them.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(entity.Models()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	a := &app{cfg: cfg, logger: log, db: db}

	if cfg.Redis.Enabled() {
		client, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Warn("Redis unavailable, running without run lock and event stream", logger.ErrorField(err))
		} else {
			a.redis = client
		}
	}

	if cfg.Telegram.Enabled() {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
		if err != nil {
			log.Warn("Telegram unavailable, notifications disabled", logger.ErrorField(err))
		} else {
			a.telegram = client
		}
	}

	deps := service.PipelineDeps{
		Registry:    service.LoadSymbolRegistry(cfg.Registry.Path, log),
		Sentiment:   repository.NewSentimentRepository(ctx, cfg, log),
		Articles:    repository.NewNewsArticleRepository(db),
		Sentiments:  repository.NewSentimentAnalysisRepository(db),
		Suggestions: repository.NewStockSuggestionRepository(db),
		Runs:        repository.NewPipelineRunRepository(db),
		Sources:     repository.NewNewsSourceRepositories(cfg.News, log),
		MaxArticles: cfg.News.MaxArticles,
	}
	switch {
	case a.redis != nil:
		deps.RunLock = repository.NewRedisRunLockRepository(a.redis, common.RedisLockPipelineRun, cfg.Pipeline.LockTTL, log)
		deps.Events = repository.NewRedisBatchEventRepository(a.redis.Client, cfg.Redis.StreamMaxLen)
	case a.telegram != nil:
		deps.Events = tgdelivery.NewBatchNotifier(a.telegram, log)
	}
	a.pipeline = service.NewSuggestionPipeline(deps, cfg.Pipeline, log)

	a.scheduler, err = schedulerservice.NewSchedulerService(cfg.Scheduler, a.pipeline, schedulerservice.RealClock(), cfg.Pipeline.RunTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return a, nil
}

// newConsumer returns nil unless both Redis and Telegram are available.
func (a *app) newConsumer() *consumer.RedisConsumer {
	if a.redis == nil || a.telegram == nil {
		return nil
	}
	return consumer.NewRedisConsumer(a.cfg.Consumer, a.redis.Client, tgdelivery.NewBatchNotifier(a.telegram, a.logger), a.logger)
}

// newBot returns nil when Telegram is not available.
func (a *app) newBot() *tgdelivery.Bot {
	if a.telegram == nil {
		return nil
	}
	return tgdelivery.NewBot(a.telegram, a.scheduler, a.pipeline, a.cfg.Telegram.ChatIDs, a.logger)
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
