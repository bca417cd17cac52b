package metrics

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/metrex/internal/contracts"
)

// ComputeAll runs the metrics concurrently and returns their results in selection order
func ComputeAll(selected []Metric, frame *contracts.MarketFrame, ctx Context) ([]*contracts.Table, error) {
	if len(selected) == 0 {
		return nil, ErrNoMetrics
	}

	results := make([]*contracts.Table, len(selected))
	var g errgroup.Group
	for i, m := range selected {
		g.Go(func() error {
			table, err := m.Compute(frame, ctx)
			if err != nil {
				return fmt.Errorf("metric %s: %w", m.Name(), err)
			}
			if err := table.Validate(); err != nil {
				return fmt.Errorf("metric %s: %w", m.Name(), err)
			}
			results[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, m := range selected {
		ctx.log().WithFields(map[string]interface{}{
			"metric": m.Name(),
			"rows":   results[i].Len(),
		}).Debug("Metric computed")
	}
	return results, nil
}
