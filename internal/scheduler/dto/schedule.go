package dto

import (
	"strings"

	"golang-stock-suggester/internal/scheduler/config"
)

// UpdateScheduleRequest changes the pipeline cadence. Omitted fields keep their current value.
type UpdateScheduleRequest struct {
	Enabled   *bool    `json:"enabled"`
	Frequency string   `json:"frequency" validate:"omitempty,oneof=daily twice_daily hourly weekly"`
	Time      string   `json:"time" validate:"omitempty,datetime=15:04"`
	Times     []string `json:"times" validate:"omitempty,len=2,dive,datetime=15:04"`
	Weekday   string   `json:"weekday" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Timezone  string   `json:"timezone"`
}

// Apply merges the request onto the current cadence.
func (r UpdateScheduleRequest) Apply(current config.Scheduler) config.Scheduler {
	next := current
	if r.Enabled != nil {
		next.Enabled = *r.Enabled
	}
	if r.Frequency != "" {
		next.Frequency = config.Frequency(r.Frequency)
	}
	if r.Time != "" {
		next.Time = r.Time
	}
	if len(r.Times) > 0 {
		next.Times = append([]string(nil), r.Times...)
	}
	if r.Weekday != "" {
		next.Weekday = strings.ToLower(r.Weekday)
	}
	if r.Timezone != "" {
		next.Timezone = r.Timezone
	}
	return next
}
