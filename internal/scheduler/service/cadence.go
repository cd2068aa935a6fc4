package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-stock-suggester/internal/scheduler/config"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCadence is returned for a cadence that cannot be scheduled.
var ErrInvalidCadence = errors.New("invalid cadence")

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Cadence is a compiled run schedule in a fixed timezone.
type Cadence struct {
	cfg       config.Scheduler
	location  *time.Location
	specs     []string
	schedules []cron.Schedule
}

// CompileCadence turns the configured frequency into cron schedules.
// Missing times fall back to the defaults of the frequency.
func CompileCadence(cfg config.Scheduler) (*Cadence, error) {
	defaults := config.Defaults()

	location := time.UTC
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidCadence, cfg.Timezone)
		}
		location = loc
	}

	var specs []string
	switch cfg.Frequency {
	case config.FrequencyHourly:
		specs = []string{"0 * * * *"}
	case config.FrequencyDaily, "":
		if cfg.Frequency == "" {
			cfg.Frequency = config.FrequencyDaily
		}
		if cfg.Time == "" {
			cfg.Time = defaults.Time
		}
		spec, err := clockSpec(cfg.Time, "*")
		if err != nil {
			return nil, err
		}
		specs = []string{spec}
	case config.FrequencyTwiceDaily:
		if len(cfg.Times) == 0 {
			cfg.Times = defaults.Times
		}
		if len(cfg.Times) != 2 {
			return nil, fmt.Errorf("%w: twice_daily needs exactly two times, got %d", ErrInvalidCadence, len(cfg.Times))
		}
		for _, t := range cfg.Times {
			spec, err := clockSpec(t, "*")
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
	case config.FrequencyWeekly:
		if cfg.Time == "" {
			cfg.Time = defaults.Time
		}
		if cfg.Weekday == "" {
			cfg.Weekday = defaults.Weekday
		}
		day, ok := weekdays[strings.ToLower(cfg.Weekday)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidCadence, cfg.Weekday)
		}
		spec, err := clockSpec(cfg.Time, fmt.Sprintf("%d", int(day)))
		if err != nil {
			return nil, err
		}
		specs = []string{spec}
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidCadence, cfg.Frequency)
	}

	schedules := make([]cron.Schedule, 0, len(specs))
	for _, spec := range specs {
		schedule, err := cronParser.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCadence, err)
		}
		schedules = append(schedules, schedule)
	}

	return &Cadence{cfg: cfg, location: location, specs: specs, schedules: schedules}, nil
}

// clockSpec builds a cron spec firing at hh:mm on the given day-of-week field.
func clockSpec(hhmm, dow string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return "", fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidCadence, hhmm)
	}
	return fmt.Sprintf("%d %d * * %s", t.Minute(), t.Hour(), dow), nil
}

// Next returns the first run time strictly after t.
func (c *Cadence) Next(t time.Time) time.Time {
	local := t.In(c.location)
	var next time.Time
	for _, schedule := range c.schedules {
		candidate := schedule.Next(local)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}

// Config returns the cadence with defaults filled in.
func (c *Cadence) Config() config.Scheduler {
	return c.cfg
}

// Specs returns the cron expressions of the cadence.
func (c *Cadence) Specs() []string {
	return append([]string(nil), c.specs...)
}

func (c *Cadence) String() string {
	return fmt.Sprintf("%s (%s, %s)", c.cfg.Frequency, strings.Join(c.specs, " | "), c.location)
}
