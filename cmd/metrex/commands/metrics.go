package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/metrex/internal/pipeline"
)

var (
	metricsDataDir    string
	metricsTimeframe  string
	metricsCandleType string
	metricsTimerange  string
	metricsNames      []string
	metricsAll        bool
	metricsOutput     string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "시장 전체 지표 계산",
	Long: `선택한 지표를 고정 기간에 대해 계산하고 하나의 테이블로 병합해 저장합니다.

출력 포맷은 --output 확장자로 결정됩니다 (.feather, .arrow, .parquet, .csv, .xlsx).

Example:
  go run ./cmd/metrex metrics --timerange 20230601-20230615 --metrics breadth_sma50,adv_decline --output out/m.parquet
  go run ./cmd/metrex metrics --timerange 20230601-20230615 --all-metrics --output out/m.feather`,
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().StringVar(&metricsDataDir, "datafolder", "", "candle directory (default DATA_DIR)")
	metricsCmd.Flags().StringVar(&metricsTimeframe, "timeframe", "", "candle interval, e.g. 1h (default TIMEFRAME)")
	metricsCmd.Flags().StringVar(&metricsCandleType, "candle-type", "", "candle type suffix, e.g. futures")
	metricsCmd.Flags().StringVar(&metricsTimerange, "timerange", "", "YYYYMMDD-YYYYMMDD")
	metricsCmd.Flags().StringSliceVar(&metricsNames, "metrics", nil, "comma separated metric names")
	metricsCmd.Flags().BoolVar(&metricsAll, "all-metrics", false, "compute every registered metric")
	metricsCmd.Flags().StringVar(&metricsOutput, "output", "", "output file")

	metricsCmd.MarkFlagRequired("timerange")
	metricsCmd.MarkFlagRequired("output")
	metricsCmd.MarkFlagsMutuallyExclusive("metrics", "all-metrics")
	metricsCmd.MarkFlagsOneRequired("metrics", "all-metrics")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	proc, _, err := newProcessor(cfg, log)
	if err != nil {
		return err
	}

	req := pipeline.MetricsRequest{
		Source:     sourceFromFlags(cfg.Data.Dir, cfg.Data.Timeframe, cfg.Data.CandleType, metricsDataDir, metricsTimeframe, metricsCandleType),
		Timerange:  metricsTimerange,
		Metrics:    cleanMetricNames(metricsNames),
		AllMetrics: metricsAll,
		Output:     metricsOutput,
	}

	ctx, stop := signalContext()
	defer stop()

	res, err := proc.RunMetrics(ctx, req)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Metrics      : %s\n", strings.Join(res.Metrics, ", "))
	fmt.Printf("  Instruments  : %d\n", res.Instruments)
	fmt.Printf("  Rows         : %d\n", res.Rows)
	fmt.Printf("  Columns      : %d\n", len(res.Columns))
	fmt.Printf("  Output       : %s\n", res.Output)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("✅ Completed in %.2fs\n", res.Duration.Seconds())

	return nil
}

// sourceFromFlags applies flag values over config defaults
func sourceFromFlags(dir, timeframe, candleType, flagDir, flagTimeframe, flagCandleType string) pipeline.Source {
	src := pipeline.Source{DataDir: dir, Timeframe: timeframe, CandleType: candleType}
	if flagDir != "" {
		src.DataDir = flagDir
	}
	if flagTimeframe != "" {
		src.Timeframe = flagTimeframe
	}
	if flagCandleType != "" {
		src.CandleType = flagCandleType
	}
	return src
}

// signalContext is cancelled on Ctrl+C
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// cleanMetricNames trims each name and drops empty entries ("a, b," -> [a b])
func cleanMetricNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
