package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	delivery "golang-stock-suggester/internal/scheduler/delivery/http"
	_ "golang-stock-suggester/internal/scheduler/docs"
	pkgconfig "golang-stock-suggester/pkg/config"
	"golang-stock-suggester/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var (
	configPath string
	runOptions dto.RunOptions
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the scheduler, HTTP API, Telegram bot and event consumer",
	Run:   runServe,
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Runs the suggestion pipeline once and prints the result as JSON",
	Run:   runOnce,
}

func loadConfig() (*config.Config, *logger.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, appLogger
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfig()
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Suggester Service", logger.Field("name", cfg.App.Name))

	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize service", logger.ErrorField(err))
	}
	defer a.Close()

	if err := a.scheduler.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start scheduler", logger.ErrorField(err))
	}

	bot := a.newBot()
	if bot != nil {
		bot.Start(ctx)
	}

	eventConsumer := a.newConsumer()
	if eventConsumer != nil {
		if err := eventConsumer.Start(ctx); err != nil {
			appLogger.Error("Failed to start event consumer", logger.ErrorField(err))
			eventConsumer = nil
		}
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/swagger/*", swagger.WrapHandler)

	apiV1 := e.Group("/api/v1")
	delivery.NewPipelineHandler(a.scheduler, a.pipeline, appLogger).RegisterRoutes(apiV1)
	delivery.NewScheduleHandler(a.scheduler, appLogger).RegisterRoutes(apiV1.Group("/schedule"))

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	// waits for an in-flight run to finish
	a.scheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	if eventConsumer != nil {
		eventConsumer.Stop()
	}

	appLogger.Info("Server exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfig()
	defer func() { _ = appLogger.Sync() }()

	if err := pkgconfig.Validate(&runOptions); err != nil {
		appLogger.Fatal("Invalid run options", logger.ErrorField(err))
	}

	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize service", logger.ErrorField(err))
	}
	defer a.Close()

	result, err := a.scheduler.RunNow(ctx, runOptions)
	if err != nil {
		appLogger.Error("Pipeline run failed", logger.ErrorField(err))
	}
	if result == nil {
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		appLogger.Fatal("Failed to encode result", logger.ErrorField(err))
	}
	fmt.Println(string(out))
	if result.Outcome == dto.OutcomeFailed {
		os.Exit(1)
	}
}

// @title Stock Suggester API
// @version 1.0
// @description Runs the news sentiment pipeline and serves the ranked stock suggestions it stores.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "suggester-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/suggester.yaml", "Path to the configuration file")
	runOnceCmd.Flags().Float64Var(&runOptions.MinScore, "min-score", 0, "Minimum average sentiment score (0 uses the configured value)")
	runOnceCmd.Flags().IntVar(&runOptions.MaxSuggestions, "max-suggestions", 0, "Maximum number of suggestions (0 uses the configured value)")
	runOnceCmd.Flags().IntVar(&runOptions.LookbackDays, "lookback-days", 0, "News lookback window in days (0 uses the configured value)")

	rootCmd.AddCommand(serveCmd, runOnceCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing suggester-service CLI: %s\n", err)
		os.Exit(1)
	}
}
