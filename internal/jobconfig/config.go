package jobconfig

// File is a scheduler job file
type File struct {
	Defaults Defaults `yaml:"defaults" json:"defaults"`
	Jobs     []Job    `yaml:"jobs" json:"jobs"`
}

// Defaults apply to every job that leaves the field empty
type Defaults struct {
	DataDir    string `yaml:"datafolder" json:"datafolder"`
	Timeframe  string `yaml:"timeframe" json:"timeframe"`
	CandleType string `yaml:"candle_type" json:"candle_type"`
	Format     string `yaml:"format" json:"format"`
}

// Mode selects the pipeline a job runs
type Mode string

const (
	ModeMetrics Mode = "metrics"
	ModeRank    Mode = "rank"
)

// Job is one scheduled batch run
type Job struct {
	Name       string `yaml:"name" json:"name"`
	Schedule   string `yaml:"schedule" json:"schedule"` // cron, with seconds
	Mode       Mode   `yaml:"mode" json:"mode"`
	DataDir    string `yaml:"datafolder" json:"datafolder"`
	Timeframe  string `yaml:"timeframe" json:"timeframe"`
	CandleType string `yaml:"candle_type" json:"candle_type"`
	Timerange  string `yaml:"timerange" json:"timerange"`

	// metrics mode
	Metrics    []string `yaml:"metrics" json:"metrics"`
	AllMetrics bool     `yaml:"all_metrics" json:"all_metrics"`

	// metrics: output file; rank: output directory
	Output string `yaml:"output" json:"output"`
	// rank mode codec name (feather, arrow, parquet, csv, xlsx)
	Format string `yaml:"format" json:"format"`
	// rank mode: mirror to Postgres
	Database bool `yaml:"database" json:"database"`
}

// applyDefaults fills empty job fields from the file defaults
func (f *File) applyDefaults() {
	for i := range f.Jobs {
		j := &f.Jobs[i]
		if j.DataDir == "" {
			j.DataDir = f.Defaults.DataDir
		}
		if j.Timeframe == "" {
			j.Timeframe = f.Defaults.Timeframe
		}
		if j.CandleType == "" {
			j.CandleType = f.Defaults.CandleType
		}
		if j.Format == "" && j.Mode == ModeRank {
			j.Format = f.Defaults.Format
		}
	}
}
