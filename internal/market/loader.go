// Package market loads per-instrument candle sources into one MarketFrame and
// restricts it to a time range.
package market

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/pkg/logger"
)

var (
	// ErrNoData is returned when no source matches the timeframe
	ErrNoData = errors.New("no candle data found")
	// ErrNoValidData is returned when every matching source fails to load
	ErrNoValidData = errors.New("no valid candle data")
)

var ohlcvColumns = []string{"open", "high", "low", "close", "volume"}

// Source is one discovered candle file
type Source struct {
	Instrument string
	Path       string
	Codec      storage.Codec
}

// Loader reads {instrument}-{timeframe}[-{candleType}].{ext} files from a directory
// ⭐ SSOT: 캔들 입력은 Loader를 통해서만
type Loader struct {
	dir        string
	timeframe  string
	candleType string
	workers    int
	logger     *logger.Logger
}

// NewLoader creates a loader. An empty candleType means spot files (no suffix).
func NewLoader(dir, timeframe, candleType string, workers int, log *logger.Logger) *Loader {
	if workers <= 0 {
		workers = 1
	}
	if candleType == "spot" {
		candleType = ""
	}
	return &Loader{
		dir:        dir,
		timeframe:  timeframe,
		candleType: candleType,
		workers:    workers,
		logger:     log,
	}
}

func (l *Loader) suffix() string {
	if l.candleType == "" {
		return "-" + l.timeframe
	}
	return "-" + l.timeframe + "-" + l.candleType
}

// Discover lists the sources of the loader's timeframe, one per instrument,
// sorted by instrument. When an instrument has several files the preferred
// codec wins.
func (l *Loader) Discover() ([]Source, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", l.dir, err)
	}

	rank := make(map[string]int)
	for i, c := range storage.Codecs() {
		rank[c.Name()] = i
	}

	suffix := l.suffix()
	chosen := make(map[string]Source)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		codec, err := storage.CodecFor(name)
		if err != nil {
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !strings.HasSuffix(stem, suffix) {
			continue
		}
		instrument, _, _ := strings.Cut(stem, "-")
		if instrument == "" {
			continue
		}

		src := Source{Instrument: instrument, Path: filepath.Join(l.dir, name), Codec: codec}
		if prev, ok := chosen[instrument]; ok {
			if rank[prev.Codec.Name()] <= rank[codec.Name()] {
				l.logger.WithFields(map[string]interface{}{
					"instrument": instrument,
					"file":       src.Path,
					"kept":       prev.Path,
				}).Warn("Duplicate source ignored")
				continue
			}
			l.logger.WithFields(map[string]interface{}{
				"instrument": instrument,
				"file":       prev.Path,
				"kept":       src.Path,
			}).Warn("Duplicate source ignored")
		}
		chosen[instrument] = src
	}

	sources := make([]Source, 0, len(chosen))
	for _, src := range chosen {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Instrument < sources[j].Instrument
	})
	return sources, nil
}

type loadResult struct {
	candles []contracts.Candle
	skipped int
	err     error
}

// Load decodes every source concurrently and assembles the frame in instrument order
func (l *Loader) Load(ctx context.Context) (*contracts.MarketFrame, error) {
	sources, err := l.Discover()
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no *%s files in %s", ErrNoData, l.suffix(), l.dir)
	}

	results := make([]loadResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candles, skipped, err := readSource(src)
			results[i] = loadResult{candles: candles, skipped: skipped, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []contracts.Candle
	loaded := 0
	for i, src := range sources {
		res := results[i]
		log := l.logger.WithFields(map[string]interface{}{
			"instrument": src.Instrument,
			"file":       src.Path,
		})
		if res.err != nil {
			log.WithError(res.err).Warn("Failed to load source, skipping")
			continue
		}
		if res.skipped > 0 {
			log.WithField("rows", res.skipped).Warn("Skipped invalid rows")
		}
		all = append(all, res.candles...)
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("%w: all %d sources failed", ErrNoValidData, len(sources))
	}

	l.logger.WithFields(map[string]interface{}{
		"instruments": loaded,
		"rows":        len(all),
		"timeframe":   l.timeframe,
	}).Info("Candles loaded")

	return contracts.NewMarketFrame(all), nil
}

// readSource decodes one file into ascending candles with unique timestamps.
// Rows failing validation are counted and dropped; a later duplicate replaces an earlier one.
func readSource(src Source) ([]contracts.Candle, int, error) {
	table, err := src.Codec.Read(src.Path)
	if err != nil {
		return nil, 0, err
	}

	cols := make([][]float64, len(ohlcvColumns))
	for j, name := range ohlcvColumns {
		c := findColumn(table, name)
		if c == nil {
			return nil, 0, fmt.Errorf("missing column %q", name)
		}
		if c.Kind != contracts.FloatColumn {
			return nil, 0, fmt.Errorf("column %q is not numeric", name)
		}
		cols[j] = c.Floats
	}

	candles := make([]contracts.Candle, 0, table.Len())
	skipped := 0
	for i, ts := range table.Timestamps {
		c := contracts.Candle{
			Timestamp:  ts,
			Instrument: src.Instrument,
			Open:       cols[0][i],
			High:       cols[1][i],
			Low:        cols[2][i],
			Close:      cols[3][i],
			Volume:     cols[4][i],
		}
		if !c.Valid() {
			skipped++
			continue
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	unique := candles[:0]
	for _, c := range candles {
		if n := len(unique); n > 0 && unique[n-1].Timestamp.Equal(c.Timestamp) {
			unique[n-1] = c
			continue
		}
		unique = append(unique, c)
	}

	if len(unique) == 0 {
		return nil, skipped, fmt.Errorf("no valid rows")
	}
	return unique, skipped, nil
}

func findColumn(table *contracts.Table, name string) *contracts.Column {
	if c := table.Column(name); c != nil {
		return c
	}
	for _, c := range table.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}
