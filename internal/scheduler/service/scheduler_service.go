package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-stock-suggester/internal/executor/dto"
	pipeline "golang-stock-suggester/internal/executor/service"
	"golang-stock-suggester/internal/scheduler/config"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/utils"
)

const defaultRunTimeout = 30 * time.Minute

// State is the lifecycle state of the scheduler.
type State string

const (
	StateIdle    State = "idle"
	StateArmed   State = "armed"
	StateRunning State = "running"
)

// PipelineRunner executes one pipeline run.
type PipelineRunner interface {
	RunNow(ctx context.Context, trigger dto.Trigger, opts dto.RunOptions) (*dto.RunResult, error)
}

// Status is a snapshot of the scheduler.
type Status struct {
	State       State            `json:"state"`
	Cadence     config.Scheduler `json:"cadence"`
	Specs       []string         `json:"specs"`
	NextRun     *time.Time       `json:"next_run,omitempty"`
	LastRun     *time.Time       `json:"last_run,omitempty"`
	LastTrigger dto.Trigger      `json:"last_trigger,omitempty"`
	LastOutcome dto.RunOutcome   `json:"last_outcome,omitempty"`
	LastBatchID string           `json:"last_batch_id,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
}

// SchedulerService runs the pipeline on a cadence and on demand.
type SchedulerService interface {
	// Start arms the cadence. It returns immediately; ticks run on a background loop.
	Start(ctx context.Context) error
	// Stop cancels pending ticks and waits for the loop to exit. A started run completes.
	Stop()
	// RunNow runs the pipeline immediately. It fails with ErrRunInProgress while another run executes.
	RunNow(ctx context.Context, opts dto.RunOptions) (*dto.RunResult, error)
	// Reschedule swaps the cadence; an armed loop re-arms with it.
	Reschedule(cfg config.Scheduler) error
	Status() Status
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(cfg config.Scheduler, runner PipelineRunner, clock Clock, runTimeout time.Duration, log *logger.Logger) (SchedulerService, error) {
	cadence, err := CompileCadence(cfg)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = RealClock()
	}
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &schedulerService{
		runner:      runner,
		clock:       clock,
		runTimeout:  runTimeout,
		logger:      log,
		cadence:     cadence,
		enabled:     cfg.Enabled,
		rescheduled: make(chan struct{}, 1),
	}, nil
}

type schedulerService struct {
	runner     PipelineRunner
	clock      Clock
	runTimeout time.Duration
	logger     *logger.Logger

	mu          sync.Mutex
	cadence     *Cadence
	enabled     bool
	baseCtx     context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	rescheduled chan struct{}
	next        time.Time
	running     bool
	lastRun     time.Time
	lastTrigger dto.Trigger
	lastOutcome dto.RunOutcome
	lastBatchID string
	lastError   string
}

func (s *schedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseCtx = ctx
	if !s.enabled {
		s.logger.Info("Scheduler disabled, not arming")
		return nil
	}
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.startLocked()
	return nil
}

func (s *schedulerService) startLocked() {
	loopCtx, cancel := context.WithCancel(s.baseCtx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.logger.Info("Scheduler armed", logger.StringField("cadence", s.cadence.String()))

	done := s.done
	utils.GoSafe(func() {
		defer close(done)
		s.loop(loopCtx)
	})
}

func (s *schedulerService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.next = time.Time{}
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Scheduler stopped")
}

func (s *schedulerService) RunNow(ctx context.Context, opts dto.RunOptions) (*dto.RunResult, error) {
	return s.execute(ctx, dto.TriggerManual, opts)
}

func (s *schedulerService) Reschedule(cfg config.Scheduler) error {
	cadence, err := CompileCadence(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cadence = cadence
	s.enabled = cfg.Enabled
	armed := s.cancel != nil
	canStart := s.baseCtx != nil && s.baseCtx.Err() == nil
	if !armed && cfg.Enabled && canStart {
		s.startLocked()
	}
	s.mu.Unlock()

	s.logger.Info("Scheduler rescheduled", logger.StringField("cadence", cadence.String()), logger.Field("enabled", cfg.Enabled))

	switch {
	case armed && !cfg.Enabled:
		s.Stop()
	case armed:
		select {
		case s.rescheduled <- struct{}{}:
		default:
		}
	}
	return nil
}

func (s *schedulerService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:       StateIdle,
		Cadence:     s.cadence.Config(),
		Specs:       s.cadence.Specs(),
		LastTrigger: s.lastTrigger,
		LastOutcome: s.lastOutcome,
		LastBatchID: s.lastBatchID,
		LastError:   s.lastError,
	}
	status.Cadence.Enabled = s.enabled
	switch {
	case s.running:
		status.State = StateRunning
	case s.cancel != nil:
		status.State = StateArmed
	}
	if !s.next.IsZero() {
		next := s.next
		status.NextRun = &next
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRun = &last
	}
	return status
}

func (s *schedulerService) loop(ctx context.Context) {
	for {
		s.mu.Lock()
		now := s.clock.Now()
		next := s.cadence.Next(now)
		s.next = next
		s.mu.Unlock()

		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		s.logger.Debug("Next pipeline run scheduled", logger.Field("next_run", next), logger.DurationField("wait", wait))

		select {
		case <-ctx.Done():
			return
		case <-s.rescheduled:
			continue
		case <-s.clock.After(wait):
		}

		// stop may race with the timer
		if ctx.Err() != nil {
			return
		}
		if _, err := s.execute(ctx, dto.TriggerScheduled, dto.RunOptions{}); err != nil {
			s.logger.Error("Scheduled pipeline run failed", logger.ErrorField(err))
		}
	}
}

// execute runs the pipeline on a context detached from ctx's cancellation and
// bounded by the run timeout. Panics are returned as errors.
func (s *schedulerService) execute(ctx context.Context, trigger dto.Trigger, opts dto.RunOptions) (*dto.RunResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, pipeline.ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
	defer cancel()

	started := s.clock.Now()
	var result *dto.RunResult
	err := utils.SafeCall(func() error {
		var err error
		result, err = s.runner.RunNow(runCtx, trigger, opts)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return nil, err
	}

	s.lastRun = started
	s.lastTrigger = trigger
	s.lastError = ""
	s.lastBatchID = ""
	s.lastOutcome = dto.OutcomeFailed
	if result != nil {
		s.lastOutcome = result.Outcome
		s.lastBatchID = result.BatchID
	}
	if err != nil {
		s.lastOutcome = dto.OutcomeFailed
		s.lastError = err.Error()
	}
	return result, err
}
