// Package metrics computes market-level indicators from a MarketFrame.
//
// Every metric is a pure function of the frame: it scans each instrument's
// history with an explicit rolling window, then aggregates across the
// instruments present at each timestamp. Results are timestamp-indexed tables
// without an instrument dimension, combined by Merge.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/pkg/logger"
)

var (
	// ErrDuplicateMetric is returned when two metrics register the same name
	ErrDuplicateMetric = errors.New("duplicate metric")
	// ErrNoMetrics is returned when a selection resolves to no metric
	ErrNoMetrics = errors.New("no metrics selected")
	// ErrReferenceMissing is returned by metrics that need a reference instrument
	ErrReferenceMissing = errors.New("reference instrument not found")
	// ErrDuplicateColumn is returned by Merge when two results share a column name
	ErrDuplicateColumn = errors.New("duplicate metric column")
)

// DefaultReferences is the reference instrument priority list
var DefaultReferences = []string{"BTC_USDT", "BTCUSDT", "BTC"}

// Metric is one market-level computation unit
type Metric interface {
	Name() string
	// Columns lists the result columns in order
	Columns() []string
	Compute(frame *contracts.MarketFrame, ctx Context) (*contracts.Table, error)
}

// Context carries run-wide inputs shared by all metrics
type Context struct {
	// References is the reference instrument priority list
	References []string
	// Interval is the sampling interval; zero means infer from the data
	Interval time.Duration
	Logger   *logger.Logger
}

func (c Context) log() *logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}

func (c Context) references() []string {
	if len(c.References) == 0 {
		return DefaultReferences
	}
	return c.References
}

// Registry holds metrics by name in registration order
// ⭐ SSOT: 프로세스 시작 시 명시적으로 구성 (import 부작용 없음)
type Registry struct {
	metrics []Metric
	byName  map[string]Metric
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Metric)}
}

// NewDefaultRegistry creates a registry holding every built-in metric
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, m := range []Metric{
		BreadthSMA50{},
		MarketVolRegime{},
		TrendSlope{},
		AdvanceDecline{},
		NewHighsLows{},
		VolumeSurgeRatio{},
		AvgCorrelation{},
		MarketReturnMA{},
	} {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds m. A second metric with the same name is rejected.
func (r *Registry) Register(m Metric) error {
	if _, exists := r.byName[m.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, m.Name())
	}
	r.byName[m.Name()] = m
	r.metrics = append(r.metrics, m)
	return nil
}

// Get returns the metric registered under name
func (r *Registry) Get(name string) (Metric, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// All returns every metric in registration order
func (r *Registry) All() []Metric {
	out := make([]Metric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		names[i] = m.Name()
	}
	return names
}

// Select resolves names in the given order. Unknown names are dropped and
// repeated names are kept once.
func (r *Registry) Select(names []string) ([]Metric, error) {
	seen := make(map[string]bool, len(names))
	var out []Metric
	for _, name := range names {
		m, ok := r.byName[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoMetrics, names)
	}
	return out, nil
}
