package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/metrex/internal/contracts"
)

func records(closeOffset float64, hours ...int) []contracts.RankedRecord {
	out := make([]contracts.RankedRecord, 0, len(hours))
	for _, h := range hours {
		out = append(out, contracts.RankedRecord{Timestamp: at(h), Instrument: "A", Close: float64(h) + closeOffset})
	}
	return out
}

func hoursOf(rs []contracts.RankedRecord) []time.Time {
	out := make([]time.Time, len(rs))
	for i, r := range rs {
		out[i] = r.Timestamp
	}
	return out
}

func TestLastSeen(t *testing.T) {
	_, ok := LastSeen(nil)
	assert.False(t, ok)

	last, ok := LastSeen(records(0, 3, 7, 5))
	assert.True(t, ok)
	assert.Equal(t, at(7), last)
}

func TestReconcile_DropsAlreadyEmitted(t *testing.T) {
	prior := records(0, 0, 1, 2)
	fresh := records(100, 1, 2, 3, 4)

	merged, added := Reconcile(prior, fresh, at(2), true)
	assert.Equal(t, []time.Time{at(3), at(4)}, hoursOf(added))
	assert.Equal(t, []time.Time{at(0), at(1), at(2), at(3), at(4)}, hoursOf(merged))
	assert.Equal(t, 1.0, merged[1].Close, "rows at or before lastSeen keep the prior value")
	assert.Equal(t, 103.0, merged[3].Close)
}

func TestReconcile_NoNewData(t *testing.T) {
	prior := records(0, 0, 1, 2)
	merged, added := Reconcile(prior, records(100, 0, 1, 2), at(2), true)

	assert.Empty(t, added)
	assert.Equal(t, prior, merged)
}

func TestReconcile_FreshWinsOnCollision(t *testing.T) {
	// collision above lastSeen: prior holds a row the caller did not report
	prior := records(0, 0, 5)
	merged, added := Reconcile(prior, records(100, 5, 6), at(0), true)

	require.Len(t, merged, 3)
	assert.Len(t, added, 2)
	assert.Equal(t, 105.0, merged[1].Close)
}

func TestReconcile_NoPriorState(t *testing.T) {
	merged, added := Reconcile(nil, records(0, 2, 0, 1), time.Time{}, false)
	assert.Equal(t, []time.Time{at(0), at(1), at(2)}, hoursOf(added))
	assert.Equal(t, []time.Time{at(0), at(1), at(2)}, hoursOf(merged))
}
