package jobconfig

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/internal/timeutil"
)

// ValidationError 검증 실패 (스케줄러 시작 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// cronParser matches the scheduler's cron.WithSeconds() parser
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks every job; the first failure is returned
func Validate(f *File) error {
	if len(f.Jobs) == 0 {
		return ValidationError{"jobs", "at least one job is required"}
	}

	seen := make(map[string]bool, len(f.Jobs))
	for i, j := range f.Jobs {
		field := func(name string) string {
			return fmt.Sprintf("jobs[%d].%s", i, name)
		}

		if j.Name == "" {
			return ValidationError{field("name"), "required"}
		}
		if seen[j.Name] {
			return ValidationError{field("name"), fmt.Sprintf("duplicate job %q", j.Name)}
		}
		seen[j.Name] = true

		if _, err := cronParser.Parse(j.Schedule); err != nil {
			return ValidationError{field("schedule"), err.Error()}
		}
		if j.DataDir == "" {
			return ValidationError{field("datafolder"), "required (or set defaults.datafolder)"}
		}
		if j.Timeframe == "" {
			return ValidationError{field("timeframe"), "required (or set defaults.timeframe)"}
		}

		r, err := timeutil.ParseRange(j.Timerange)
		if err != nil {
			return ValidationError{field("timerange"), err.Error()}
		}

		if j.Output == "" {
			return ValidationError{field("output"), "required"}
		}

		switch j.Mode {
		case ModeMetrics:
			if err := validateMetricsJob(j, r); err != nil {
				return ValidationError{field(err.Field), err.Message}
			}
		case ModeRank:
			if err := validateRankJob(j); err != nil {
				return ValidationError{field(err.Field), err.Message}
			}
		default:
			return ValidationError{field("mode"), fmt.Sprintf("must be %q or %q, got %q", ModeMetrics, ModeRank, j.Mode)}
		}
	}
	return nil
}

func validateMetricsJob(j Job, r timeutil.Range) *ValidationError {
	if r.Anchored {
		return &ValidationError{"timerange", "metrics jobs need a fixed range"}
	}
	if j.AllMetrics == (len(j.Metrics) > 0) {
		return &ValidationError{"metrics", "set either metrics or all_metrics"}
	}
	if _, err := storage.OutputCodecFor(j.Output); err != nil {
		return &ValidationError{"output", err.Error()}
	}
	if j.Format != "" {
		return &ValidationError{"format", "only used by rank jobs, the output extension selects the codec"}
	}
	if j.Database {
		return &ValidationError{"database", "only used by rank jobs"}
	}
	return nil
}

func validateRankJob(j Job) *ValidationError {
	if len(j.Metrics) > 0 || j.AllMetrics {
		return &ValidationError{"metrics", "only used by metrics jobs"}
	}
	// empty format falls back to OUTPUT_FORMAT
	if j.Format == "" {
		return nil
	}
	if _, err := storage.OutputCodecByName(j.Format); err != nil {
		return &ValidationError{"format", err.Error()}
	}
	return nil
}

// Next returns the first scheduled run after t
func (j Job) Next(t time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(j.Schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}
