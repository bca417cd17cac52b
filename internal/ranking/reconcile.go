package ranking

import (
	"sort"
	"time"

	"github.com/wonny/metrex/internal/contracts"
)

// LastSeen returns the latest persisted timestamp
func LastSeen(records []contracts.RankedRecord) (time.Time, bool) {
	var last time.Time
	for _, r := range records {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last, !last.IsZero()
}

// Reconcile merges freshly computed records into the persisted ones. With
// prior state, fresh rows at or before lastSeen are dropped; on a timestamp
// collision the fresh row wins. The result is ascending with one row per
// timestamp; added holds the fresh rows taken, ascending.
func Reconcile(prior, fresh []contracts.RankedRecord, lastSeen time.Time, hasPrior bool) (merged, added []contracts.RankedRecord) {
	byTime := make(map[int64]contracts.RankedRecord, len(prior)+len(fresh))
	for _, r := range prior {
		byTime[r.Timestamp.UnixNano()] = r
	}
	for _, r := range fresh {
		if hasPrior && !r.Timestamp.After(lastSeen) {
			continue
		}
		byTime[r.Timestamp.UnixNano()] = r
		added = append(added, r)
	}
	sortByTime(added)

	merged = make([]contracts.RankedRecord, 0, len(byTime))
	for _, r := range byTime {
		merged = append(merged, r)
	}
	sortByTime(merged)
	return merged, added
}

func sortByTime(records []contracts.RankedRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}
