package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/metrex/internal/contracts"
)

// RollingWindow is a fixed-size ring buffer over the most recent values of one
// series. NaN entries occupy a slot but do not count as observations.
type RollingWindow struct {
	buf   []float64
	next  int
	count int
}

// NewRollingWindow creates a window of size slots
func NewRollingWindow(size int) *RollingWindow {
	return &RollingWindow{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest slot when full
func (w *RollingWindow) Push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Len returns the number of occupied slots
func (w *RollingWindow) Len() int {
	return w.count
}

// Values returns the occupied slots, oldest first
func (w *RollingWindow) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := (w.next - w.count + len(w.buf)) % len(w.buf)
	for i := 0; i < w.count; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}

// Observations returns the number of non-NaN values
func (w *RollingWindow) Observations() int {
	n := 0
	for _, v := range w.Values() {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Mean returns the mean of the observations, NaN below minObs
func (w *RollingWindow) Mean(minObs int) float64 {
	obs := observed(w.Values())
	if len(obs) == 0 || len(obs) < minObs {
		return math.NaN()
	}
	return stat.Mean(obs, nil)
}

// Std returns the sample standard deviation of the observations, NaN below
// minObs or with fewer than two observations
func (w *RollingWindow) Std(minObs int) float64 {
	return sampleStd(w.Values(), minObs)
}

// Max returns the largest observation, NaN below minObs
func (w *RollingWindow) Max(minObs int) float64 {
	return extreme(w.Values(), minObs, func(a, b float64) bool { return a > b })
}

// Min returns the smallest observation, NaN below minObs
func (w *RollingWindow) Min(minObs int) float64 {
	return extreme(w.Values(), minObs, func(a, b float64) bool { return a < b })
}

func extreme(values []float64, minObs int, better func(a, b float64) bool) float64 {
	best, n := math.NaN(), 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if n == 0 || better(v, best) {
			best = v
		}
		n++
	}
	if n == 0 || n < minObs {
		return math.NaN()
	}
	return best
}

// observed drops the NaN entries
func observed(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func sampleStd(values []float64, minObs int) float64 {
	obs := observed(values)
	if len(obs) < 2 || len(obs) < minObs {
		return math.NaN()
	}
	return stat.StdDev(obs, nil)
}

// pearson returns the correlation of x and y over pairwise-complete
// observations, NaN below minObs or when either side has no variance
func pearson(x, y []float64, minObs int) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 || len(xs) < minObs {
		return math.NaN()
	}
	if stat.Variance(xs, nil) <= 0 || stat.Variance(ys, nil) <= 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// quantile returns the q-quantile of sorted values, interpolating at (n-1)*q
// like pandas. gonum's LinearInterpolation places the points differently.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// periodReturns returns close[i]/close[i-1]-1 for one instrument, NaN for the
// first row and after a zero close
func periodReturns(candles []contracts.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		if i == 0 || candles[i-1].Close == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = candles[i].Close/candles[i-1].Close - 1
	}
	return out
}

// timeIndex maps the frame's distinct timestamps to row positions
type timeIndex struct {
	times []time.Time
	pos   map[int64]int
}

func newTimeIndex(times []time.Time) *timeIndex {
	ix := &timeIndex{times: times, pos: make(map[int64]int, len(times))}
	for i, t := range times {
		ix.pos[t.UnixNano()] = i
	}
	return ix
}

func (ix *timeIndex) at(t time.Time) int {
	return ix.pos[t.UnixNano()]
}

// crossSection accumulates per-timestamp means and counts across instruments
type crossSection struct {
	sum   []float64
	n     []int
	count []int
}

func newCrossSection(rows int) *crossSection {
	return &crossSection{
		sum:   make([]float64, rows),
		n:     make([]int, rows),
		count: make([]int, rows),
	}
}

// add records v at row i; NaN only counts the instrument as present
func (cs *crossSection) add(i int, v float64) {
	cs.count[i]++
	if !math.IsNaN(v) {
		cs.sum[i] += v
		cs.n[i]++
	}
}

func (cs *crossSection) mean(i int) float64 {
	if cs.n[i] == 0 {
		return math.NaN()
	}
	return cs.sum[i] / float64(cs.n[i])
}

func (cs *crossSection) means() []float64 {
	out := make([]float64, len(cs.sum))
	for i := range out {
		out[i] = cs.mean(i)
	}
	return out
}

// resolveReference returns the first instrument of the priority list present in the frame
func resolveReference(frame *contracts.MarketFrame, refs []string) (string, bool) {
	present := make(map[string]bool)
	for _, inst := range frame.Instruments() {
		present[inst] = true
	}
	for _, ref := range refs {
		if present[ref] {
			return ref, true
		}
	}
	return "", false
}

// inferInterval returns the smallest positive step between consecutive timestamps
func inferInterval(candles []contracts.Candle) time.Duration {
	var step time.Duration
	for i := 1; i < len(candles); i++ {
		d := candles[i].Timestamp.Sub(candles[i-1].Timestamp)
		if d > 0 && (step == 0 || d < step) {
			step = d
		}
	}
	return step
}

func floatTable(times []time.Time, cols map[string][]float64, order []string) *contracts.Table {
	t := &contracts.Table{Timestamps: times}
	for _, name := range order {
		t.Columns = append(t.Columns, contracts.NewFloatColumn(name, cols[name]))
	}
	return t
}

func seriesTimes(candles []contracts.Candle) []time.Time {
	out := make([]time.Time, len(candles))
	for i, c := range candles {
		out[i] = c.Timestamp
	}
	return out
}
