package scheduler

import (
	"context"
	"time"
)

// Job is one scheduled pipeline run
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Schedule returns the cron expression, seconds first
	// Examples: "0 5 * * * *" (five past every hour), "@hourly"
	Schedule() string

	// Run executes the pipeline once and reports what it wrote
	Run(ctx context.Context) (RunReport, error)
}

// RunReport is what one successful pipeline run wrote
type RunReport struct {
	Mode        string `json:"mode"` // metrics | rank
	Instruments int    `json:"instruments"`
	Rows        int    `json:"rows"`                // rank: rows appended or replaced
	Updated     int    `json:"updated,omitempty"`   // rank: outputs written
	Unchanged   int    `json:"unchanged,omitempty"` // rank: outputs with no new timestamps
	Output      string `json:"output,omitempty"`
}

// Stale reports a rank run that found nothing new for any instrument
func (r RunReport) Stale() bool {
	return r.Mode == "rank" && r.Updated == 0 && r.Unchanged > 0
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Report    RunReport     `json:"report"` // zero unless Success
}

// historyLimit is the number of results kept per job
const historyLimit = 100

// JobHistory keeps the latest results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// Add records a result, evicting the oldest beyond historyLimit
func (h *JobHistory) Add(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Latest returns the last n results
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failures returns the failed results
func (h *JobHistory) Failures() []JobResult {
	failed := make([]JobResult, 0)
	for _, r := range h.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate returns the share of successful runs (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-len(h.Failures())) / float64(len(h.Results))
}

// LastSuccess returns the most recent successful result
func (h *JobHistory) LastSuccess() (JobResult, bool) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success {
			return h.Results[i], true
		}
	}
	return JobResult{}, false
}

// RowsWritten sums the rows reported by the kept results
func (h *JobHistory) RowsWritten() int {
	total := 0
	for _, r := range h.Results {
		total += r.Report.Rows
	}
	return total
}

// StaleStreak counts the trailing successful rank runs that found no new
// timestamps. A growing streak means the candle source stopped updating.
func (h *JobHistory) StaleStreak() int {
	n := 0
	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		if !r.Success || !r.Report.Stale() {
			break
		}
		n++
	}
	return n
}
