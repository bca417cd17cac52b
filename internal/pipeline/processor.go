// Package pipeline wires loader, range filter, metrics, ranking and storage
// into the two batch runs: merged market metrics and incremental ranking.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/market"
	"github.com/wonny/metrex/internal/metrics"
	"github.com/wonny/metrex/internal/ranking"
	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/internal/timeutil"
	"github.com/wonny/metrex/pkg/logger"
)

// Options holds the run-wide settings shared by both modes
type Options struct {
	Workers    int
	References []string
}

// Processor runs complete batch pipelines
// ⭐ SSOT: Loader → RangeFilter → (Metrics+Merge | Ranking) → Storage
type Processor struct {
	registry *metrics.Registry
	engine   *ranking.Engine
	opts     Options
	logger   *logger.Logger
}

// NewProcessor creates a processor over an explicitly built metric registry
func NewProcessor(registry *metrics.Registry, engine *ranking.Engine, opts Options, log *logger.Logger) *Processor {
	return &Processor{
		registry: registry,
		engine:   engine,
		opts:     opts,
		logger:   log,
	}
}

// Source describes where candles are read from
type Source struct {
	DataDir    string
	Timeframe  string
	CandleType string
}

// MetricsRequest is one merged-metrics run
type MetricsRequest struct {
	Source
	Timerange string
	// Metrics are resolved in order; unknown names are dropped
	Metrics    []string
	AllMetrics bool
	Output     string
}

// MetricsResult summarizes a merged-metrics run
type MetricsResult struct {
	Metrics     []string
	Columns     []string
	Instruments int
	Rows        int
	Output      string
	Duration    time.Duration
}

// RunMetrics computes the selected metrics over a fixed range and writes the
// merged table. Configuration errors are reported before any data is read.
func (p *Processor) RunMetrics(ctx context.Context, req MetricsRequest) (*MetricsResult, error) {
	start := time.Now()

	r, err := timeutil.ParseRange(req.Timerange)
	if err != nil {
		return nil, err
	}
	if r.Anchored {
		return nil, fmt.Errorf("%w: metrics need a fixed range, got %q", timeutil.ErrInvalidRange, req.Timerange)
	}

	codec, err := storage.OutputCodecFor(req.Output)
	if err != nil {
		return nil, err
	}

	selected, err := p.selectMetrics(req)
	if err != nil {
		return nil, err
	}

	frame, err := p.loader(req.Source).Load(ctx)
	if err != nil {
		return nil, err
	}
	frame, err = market.FilterFixed(frame, r, p.logger)
	if err != nil {
		return nil, err
	}

	results, err := metrics.ComputeAll(selected, frame, p.metricContext(req.Timeframe))
	if err != nil {
		return nil, err
	}
	merged, err := metrics.Merge(results...)
	if err != nil {
		return nil, err
	}

	if err := writeTable(codec, req.Output, merged); err != nil {
		return nil, err
	}

	names := make([]string, len(selected))
	for i, m := range selected {
		names[i] = m.Name()
	}
	res := &MetricsResult{
		Metrics:     names,
		Columns:     merged.ColumnNames(),
		Instruments: len(frame.Instruments()),
		Rows:        merged.Len(),
		Output:      req.Output,
		Duration:    time.Since(start),
	}

	p.logger.WithFields(map[string]interface{}{
		"metrics": len(names),
		"rows":    res.Rows,
		"output":  req.Output,
	}).Info("Metrics written")

	return res, nil
}

func (p *Processor) selectMetrics(req MetricsRequest) ([]metrics.Metric, error) {
	if req.AllMetrics {
		all := p.registry.All()
		if len(all) == 0 {
			return nil, metrics.ErrNoMetrics
		}
		return all, nil
	}

	selected, err := p.registry.Select(req.Metrics)
	if err != nil {
		return nil, err
	}
	if len(selected) < len(req.Metrics) {
		known := make(map[string]bool)
		for _, m := range selected {
			known[m.Name()] = true
		}
		for _, name := range req.Metrics {
			if !known[name] {
				p.logger.WithField("metric", name).Warn("Unknown metric ignored")
			}
		}
	}
	return selected, nil
}

func (p *Processor) loader(src Source) *market.Loader {
	return market.NewLoader(src.DataDir, src.Timeframe, src.CandleType, p.opts.Workers, p.logger)
}

func (p *Processor) metricContext(timeframe string) metrics.Context {
	interval, err := timeutil.ParseTimeframe(timeframe)
	if err != nil {
		p.logger.WithError(err).Warn("Timeframe has no fixed duration, inferring interval from data")
		interval = 0
	}
	return metrics.Context{
		References: p.opts.References,
		Interval:   interval,
		Logger:     p.logger,
	}
}

func writeTable(codec storage.Codec, path string, table *contracts.Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return codec.Write(path, table)
}

func sortedKeys(m map[string][]contracts.RankedRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
