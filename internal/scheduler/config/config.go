package config

// Frequency names a supported cadence.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyTwiceDaily Frequency = "twice_daily"
	FrequencyHourly     Frequency = "hourly"
	FrequencyWeekly     Frequency = "weekly"
)

// Scheduler holds the cadence the pipeline runs on.
type Scheduler struct {
	Enabled   bool      `mapstructure:"enabled" json:"enabled"`
	Frequency Frequency `mapstructure:"frequency" json:"frequency" validate:"oneof=daily twice_daily hourly weekly"`
	// Time is the HH:MM run time for daily and weekly cadences.
	Time string `mapstructure:"time" json:"time" validate:"omitempty,datetime=15:04"`
	// Times are the two HH:MM run times of the twice_daily cadence.
	Times    []string `mapstructure:"times" json:"times" validate:"omitempty,max=2,dive,datetime=15:04"`
	Weekday  string   `mapstructure:"weekday" json:"weekday" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Timezone string   `mapstructure:"timezone" json:"timezone"`
}

// Defaults returns the cadence used when nothing is configured.
func Defaults() Scheduler {
	return Scheduler{
		Enabled:   true,
		Frequency: FrequencyDaily,
		Time:      "09:00",
		Times:     []string{"09:00", "15:30"},
		Weekday:   "monday",
		Timezone:  "Asia/Kolkata",
	}
}
