package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/metrex/internal/jobconfig"
	"github.com/wonny/metrex/internal/pipeline"
	"github.com/wonny/metrex/internal/scheduler"
	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/pkg/logger"
)

// RankStoreFunc opens the rank store a rank job writes to
type RankStoreFunc func(ctx context.Context, job jobconfig.Job) (storage.RankStore, error)

// PipelineJob runs one configured batch pipeline on its schedule
// ⭐ SSOT: 잡 파일의 한 항목 = 한 PipelineJob
type PipelineJob struct {
	spec      jobconfig.Job
	processor *pipeline.Processor
	rankStore RankStoreFunc
	logger    *logger.Logger
}

// NewPipelineJob creates a job from its job file entry
func NewPipelineJob(spec jobconfig.Job, proc *pipeline.Processor, rankStore RankStoreFunc, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		spec:      spec,
		processor: proc,
		rankStore: rankStore,
		logger:    log.WithField("job", spec.Name),
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return j.spec.Name
}

// Schedule returns the cron schedule (with seconds)
func (j *PipelineJob) Schedule() string {
	return j.spec.Schedule
}

// Run executes the pipeline once
func (j *PipelineJob) Run(ctx context.Context) (scheduler.RunReport, error) {
	src := pipeline.Source{
		DataDir:    j.spec.DataDir,
		Timeframe:  j.spec.Timeframe,
		CandleType: j.spec.CandleType,
	}

	switch j.spec.Mode {
	case jobconfig.ModeMetrics:
		res, err := j.processor.RunMetrics(ctx, pipeline.MetricsRequest{
			Source:     src,
			Timerange:  j.spec.Timerange,
			Metrics:    j.spec.Metrics,
			AllMetrics: j.spec.AllMetrics,
			Output:     j.spec.Output,
		})
		if err != nil {
			return scheduler.RunReport{}, fmt.Errorf("metrics: %w", err)
		}
		j.logger.WithFields(map[string]interface{}{
			"rows":   res.Rows,
			"output": res.Output,
		}).Info("Scheduled metrics run completed")
		return scheduler.RunReport{
			Mode:        string(j.spec.Mode),
			Instruments: res.Instruments,
			Rows:        res.Rows,
			Output:      res.Output,
		}, nil

	case jobconfig.ModeRank:
		store, err := j.rankStore(ctx, j.spec)
		if err != nil {
			return scheduler.RunReport{}, fmt.Errorf("open rank store: %w", err)
		}
		res, err := j.processor.RunRanking(ctx, pipeline.RankRequest{
			Source:    src,
			Timerange: j.spec.Timerange,
		}, store)
		if err != nil {
			return scheduler.RunReport{}, fmt.Errorf("rank: %w", err)
		}
		j.logger.WithFields(map[string]interface{}{
			"updated":   res.Updated,
			"unchanged": res.Unchanged,
			"rows":      res.Rows,
		}).Info("Scheduled ranking run completed")
		return scheduler.RunReport{
			Mode:        string(j.spec.Mode),
			Instruments: res.Instruments,
			Rows:        res.Rows,
			Updated:     res.Updated,
			Unchanged:   res.Unchanged,
			Output:      j.spec.Output,
		}, nil
	}

	return scheduler.RunReport{}, fmt.Errorf("unknown job mode %q", j.spec.Mode)
}
