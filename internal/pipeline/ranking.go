package pipeline

import (
	"context"
	"time"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/market"
	"github.com/wonny/metrex/internal/ranking"
	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/internal/timeutil"
)

// RankRequest is one ranking run
type RankRequest struct {
	Source
	Timerange string
}

// RankResult summarizes a ranking run
type RankResult struct {
	Anchored    bool
	Instruments int
	Updated     int // instruments whose output was written
	Unchanged   int // anchored instruments without new timestamps
	Rows        int // rows written (anchored: rows appended)
	Duration    time.Duration
}

// RunRanking ranks the instruments and persists one output per instrument.
// A fixed range replaces each output; an anchored range ("latest-") extends it.
func (p *Processor) RunRanking(ctx context.Context, req RankRequest, store storage.RankStore) (*RankResult, error) {
	start := time.Now()

	r, err := timeutil.ParseRange(req.Timerange)
	if err != nil {
		return nil, err
	}

	frame, err := p.loader(req.Source).Load(ctx)
	if err != nil {
		return nil, err
	}

	res := &RankResult{Anchored: r.Anchored}
	if r.Anchored {
		err = p.rankAnchored(ctx, frame, r, store, res)
	} else {
		err = p.rankFixed(ctx, frame, r, store, res)
	}
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	p.logger.WithFields(map[string]interface{}{
		"anchored":    res.Anchored,
		"instruments": res.Instruments,
		"updated":     res.Updated,
		"unchanged":   res.Unchanged,
		"rows":        res.Rows,
	}).Info("Ranking written")

	return res, nil
}

func (p *Processor) rankFixed(ctx context.Context, frame *contracts.MarketFrame, r timeutil.Range, store storage.RankStore, res *RankResult) error {
	filtered, err := market.FilterFixed(frame, r, p.logger)
	if err != nil {
		return err
	}

	ranked := p.engine.Rank(filtered)
	for _, inst := range sortedKeys(ranked) {
		if err := store.Replace(ctx, inst, ranked[inst]); err != nil {
			return err
		}
		res.Updated++
		res.Rows += len(ranked[inst])
	}
	res.Instruments = len(ranked)
	return nil
}

type priorState struct {
	records  []contracts.RankedRecord
	lastSeen time.Time
	ok       bool
}

func (p *Processor) rankAnchored(ctx context.Context, frame *contracts.MarketFrame, r timeutil.Range, store storage.RankStore, res *RankResult) error {
	prior := make(map[string]priorState)
	lastSeen := make(map[string]time.Time)

	for _, inst := range frame.Instruments() {
		records, err := store.Load(ctx, inst)
		if err != nil {
			p.logger.WithField("instrument", inst).WithError(err).
				Warn("Persisted ranking unreadable, recomputing from earliest data")
			continue
		}
		last, ok := ranking.LastSeen(records)
		prior[inst] = priorState{records: records, lastSeen: last, ok: ok}
		if ok {
			lastSeen[inst] = last
		}
	}

	filtered, err := market.FilterAnchored(frame, r, lastSeen, p.logger)
	if err != nil {
		return err
	}

	ranked := p.engine.Rank(filtered)
	for _, inst := range sortedKeys(ranked) {
		state := prior[inst]
		merged, added := ranking.Reconcile(state.records, ranked[inst], state.lastSeen, state.ok)
		switch {
		case !state.ok:
			// no usable state: the recomputation is the whole output
			err = store.Replace(ctx, inst, merged)
		case len(added) == 0:
			res.Unchanged++
			continue
		default:
			err = store.Append(ctx, inst, merged, added)
		}
		if err != nil {
			return err
		}
		res.Updated++
		res.Rows += len(added)
	}
	res.Instruments = len(ranked)
	return nil
}
