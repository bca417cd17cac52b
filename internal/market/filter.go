package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/timeutil"
	"github.com/wonny/metrex/pkg/logger"
)

// ErrNoInstruments is returned when no instrument has rows left after filtering
var ErrNoInstruments = errors.New("no instruments left in time range")

// FilterFixed keeps the rows with start <= t <= end
func FilterFixed(frame *contracts.MarketFrame, r timeutil.Range, log *logger.Logger) (*contracts.MarketFrame, error) {
	if r.Anchored {
		return nil, fmt.Errorf("%w: %q is anchored", timeutil.ErrInvalidRange, r.Raw)
	}
	out := frame.Filter(func(c contracts.Candle) bool {
		return r.Contains(c.Timestamp)
	})
	return checkDropped(frame, out, r, log)
}

// FilterAnchored keeps the rows needed to extend every instrument's ranking.
// Each instrument starts at lastSeen-24h, or at its first row when it has no
// persisted state. The ranking is cross-sectional, so all instruments are cut
// at the same point: the earliest of those starts, less another 24h so the
// other instruments' change and volume windows are complete there too. Rows
// at or before an instrument's lastSeen are dropped again on reconcile.
func FilterAnchored(frame *contracts.MarketFrame, r timeutil.Range, lastSeen map[string]time.Time, log *logger.Logger) (*contracts.MarketFrame, error) {
	if !r.Anchored {
		return nil, fmt.Errorf("%w: %q is not anchored", timeutil.ErrInvalidRange, r.Raw)
	}

	from, ok := AnchoredStart(frame, r, lastSeen)
	out := frame.Filter(func(c contracts.Candle) bool {
		if ok && c.Timestamp.Before(from) {
			return false
		}
		return r.End.IsZero() || !c.Timestamp.After(r.End)
	})
	return checkDropped(frame, out, r, log)
}

// AnchoredStart returns the shared cut-off used by FilterAnchored
func AnchoredStart(frame *contracts.MarketFrame, r timeutil.Range, lastSeen map[string]time.Time) (time.Time, bool) {
	var from time.Time
	found := false
	for _, s := range frame.ByInstrument() {
		if len(s.Candles) == 0 {
			continue
		}
		last, ok := lastSeen[s.Instrument]
		start := r.AnchorStart(last, ok, s.Candles[0].Timestamp)
		if !found || start.Before(from) {
			from = start
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return from.Add(-timeutil.Lookback), true
}

func checkDropped(before, after *contracts.MarketFrame, r timeutil.Range, log *logger.Logger) (*contracts.MarketFrame, error) {
	kept := make(map[string]bool)
	for _, inst := range after.Instruments() {
		kept[inst] = true
	}
	for _, inst := range before.Instruments() {
		if !kept[inst] {
			log.WithFields(map[string]interface{}{
				"instrument": inst,
				"timerange":  r.Raw,
			}).Warn("No data in time range, dropping instrument")
		}
	}

	if after.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoInstruments, r.Raw)
	}
	return after, nil
}
