package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/jobconfig"
	"github.com/wonny/metrex/internal/metrics"
	"github.com/wonny/metrex/internal/pipeline"
	"github.com/wonny/metrex/internal/ranking"
	"github.com/wonny/metrex/internal/scheduler"
	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/pkg/logger"
)

func writeCandles(t *testing.T, dir, instrument string, hours int, base float64) {
	t.Helper()
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	table := &contracts.Table{}
	var closes, volumes []float64
	for h := 0; h < hours; h++ {
		table.Timestamps = append(table.Timestamps, start.Add(time.Duration(h)*time.Hour))
		closes = append(closes, base+float64(h%7))
		volumes = append(volumes, 10+float64(h%3))
	}
	table.Columns = []*contracts.Column{
		contracts.NewFloatColumn("open", closes),
		contracts.NewFloatColumn("high", closes),
		contracts.NewFloatColumn("low", closes),
		contracts.NewFloatColumn("close", closes),
		contracts.NewFloatColumn("volume", volumes),
	}
	require.NoError(t, storage.FeatherCodec{}.Write(filepath.Join(dir, instrument+"-1h.feather"), table))
}

func newProcessor(t *testing.T) *pipeline.Processor {
	t.Helper()
	registry, err := metrics.NewDefaultRegistry()
	require.NoError(t, err)
	return pipeline.NewProcessor(registry, ranking.NewEngine(logger.Nop()), pipeline.Options{Workers: 1}, logger.Nop())
}

func fileStores() RankStoreFunc {
	return func(_ context.Context, job jobconfig.Job) (storage.RankStore, error) {
		return storage.NewFileRankStore(job.Output, job.Timeframe, storage.FeatherCodec{})
	}
}

func TestPipelineJob_Run(t *testing.T) {
	dataDir := t.TempDir()
	writeCandles(t, dataDir, "BTC_USDT", 48, 100)
	writeCandles(t, dataDir, "ETH_USDT", 48, 50)
	outDir := t.TempDir()

	tests := []struct {
		name  string
		spec  jobconfig.Job
		check func(t *testing.T, rep scheduler.RunReport)
	}{
		{
			name: "metrics",
			spec: jobconfig.Job{
				Name: "m", Schedule: "@hourly", Mode: jobconfig.ModeMetrics,
				DataDir: dataDir, Timeframe: "1h", Timerange: "20230601-20230603",
				Metrics: []string{"adv_decline"}, Output: filepath.Join(outDir, "m.csv"),
			},
			check: func(t *testing.T, rep scheduler.RunReport) {
				table, err := storage.CSVCodec{}.Read(filepath.Join(outDir, "m.csv"))
				require.NoError(t, err)
				assert.Positive(t, table.Len())
				assert.Equal(t, "metrics", rep.Mode)
				assert.Equal(t, 2, rep.Instruments)
				assert.Equal(t, table.Len(), rep.Rows)
				assert.Equal(t, filepath.Join(outDir, "m.csv"), rep.Output)
			},
		},
		{
			name: "rank",
			spec: jobconfig.Job{
				Name: "r", Schedule: "@hourly", Mode: jobconfig.ModeRank,
				DataDir: dataDir, Timeframe: "1h", Timerange: "latest-",
				Output: filepath.Join(outDir, "ranked"),
			},
			check: func(t *testing.T, rep scheduler.RunReport) {
				store, err := storage.NewFileRankStore(filepath.Join(outDir, "ranked"), "1h", storage.FeatherCodec{})
				require.NoError(t, err)
				records, err := store.Load(context.Background(), "ETH_USDT")
				require.NoError(t, err)
				assert.Len(t, records, 48)
				assert.Equal(t, scheduler.RunReport{
					Mode: "rank", Instruments: 2, Rows: 96, Updated: 2,
					Output: filepath.Join(outDir, "ranked"),
				}, rep)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewPipelineJob(tt.spec, newProcessor(t), fileStores(), logger.Nop())
			assert.Equal(t, tt.spec.Name, job.Name())
			assert.Equal(t, "@hourly", job.Schedule())

			rep, err := job.Run(context.Background())
			require.NoError(t, err)
			tt.check(t, rep)
		})
	}
}

func TestPipelineJob_RerunReportsStale(t *testing.T) {
	dataDir := t.TempDir()
	writeCandles(t, dataDir, "BTC_USDT", 30, 100)
	writeCandles(t, dataDir, "ETH_USDT", 30, 50)

	spec := jobconfig.Job{
		Name: "r", Schedule: "@hourly", Mode: jobconfig.ModeRank,
		DataDir: dataDir, Timeframe: "1h", Timerange: "latest-",
		Output: filepath.Join(t.TempDir(), "ranked"),
	}
	job := NewPipelineJob(spec, newProcessor(t), fileStores(), logger.Nop())

	first, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Stale())

	second, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Stale())
	assert.Equal(t, 0, second.Rows)
	assert.Equal(t, 2, second.Unchanged)
}

func TestPipelineJob_Errors(t *testing.T) {
	storeErr := errors.New("store down")
	failing := func(context.Context, jobconfig.Job) (storage.RankStore, error) { return nil, storeErr }

	rank := jobconfig.Job{Name: "r", Mode: jobconfig.ModeRank, DataDir: t.TempDir(), Timeframe: "1h", Timerange: "latest-"}
	_, err := NewPipelineJob(rank, newProcessor(t), failing, logger.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, storeErr)

	unknown := jobconfig.Job{Name: "x", Mode: "export"}
	_, err = NewPipelineJob(unknown, newProcessor(t), failing, logger.Nop()).Run(context.Background())
	assert.Error(t, err)

	metricsJob := jobconfig.Job{
		Name: "m", Mode: jobconfig.ModeMetrics, DataDir: t.TempDir(), Timeframe: "1h",
		Timerange: "20230601-20230602", AllMetrics: true, Output: filepath.Join(t.TempDir(), "m.txt"),
	}
	_, err = NewPipelineJob(metricsJob, newProcessor(t), failing, logger.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnknownFormat)
}
