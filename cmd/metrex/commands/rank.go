package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/metrex/internal/jobconfig"
	"github.com/wonny/metrex/internal/pipeline"
)

var (
	rankDataDir    string
	rankTimeframe  string
	rankCandleType string
	rankTimerange  string
	rankOutputDir  string
	rankFormat     string
	rankUseDB      bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "종목별 24h 랭킹 계산",
	Long: `종목별 24h 변동률과 거래대금 랭킹을 계산해 종목마다 하나의 파일로 저장합니다.

--timerange latest- 는 증분 모드입니다: 기존 출력의 마지막 시점 이후만 추가합니다.
고정 기간(YYYYMMDD-YYYYMMDD)은 출력을 덮어씁니다.
--db 를 주면 PostgreSQL(DATABASE_URL)에도 같은 결과를 기록합니다.

Example:
  go run ./cmd/metrex rank --timerange latest- --output-dir out/ranked
  go run ./cmd/metrex rank --timerange 20230601-20230615 --output-dir out/ranked --format parquet --db`,
	RunE: runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankDataDir, "datafolder", "", "candle directory (default DATA_DIR)")
	rankCmd.Flags().StringVar(&rankTimeframe, "timeframe", "", "candle interval, e.g. 1h (default TIMEFRAME)")
	rankCmd.Flags().StringVar(&rankCandleType, "candle-type", "", "candle type suffix, e.g. futures")
	rankCmd.Flags().StringVar(&rankTimerange, "timerange", "latest-", "YYYYMMDD-YYYYMMDD or latest-[YYYYMMDD]")
	rankCmd.Flags().StringVar(&rankOutputDir, "output-dir", "", "output directory")
	rankCmd.Flags().StringVar(&rankFormat, "format", "", "output format (default OUTPUT_FORMAT)")
	rankCmd.Flags().BoolVar(&rankUseDB, "db", false, "mirror results to PostgreSQL")

	rankCmd.MarkFlagRequired("output-dir")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	proc, _, err := newProcessor(cfg, log)
	if err != nil {
		return err
	}

	src := sourceFromFlags(cfg.Data.Dir, cfg.Data.Timeframe, cfg.Data.CandleType, rankDataDir, rankTimeframe, rankCandleType)

	ctx, stop := signalContext()
	defer stop()

	stores := newRankStores(cfg, log)
	defer stores.close()

	store, err := stores.open(ctx, jobconfig.Job{
		Timeframe: src.Timeframe,
		Output:    rankOutputDir,
		Format:    rankFormat,
		Database:  rankUseDB,
	})
	if err != nil {
		return err
	}

	res, err := proc.RunRanking(ctx, pipeline.RankRequest{Source: src, Timerange: rankTimerange}, store)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	mode := "fixed (overwrite)"
	if res.Anchored {
		mode = "anchored (incremental)"
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Mode         : %s\n", mode)
	fmt.Printf("  Instruments  : %d\n", res.Instruments)
	fmt.Printf("  Updated      : %d\n", res.Updated)
	fmt.Printf("  Unchanged    : %d\n", res.Unchanged)
	fmt.Printf("  Rows written : %d\n", res.Rows)
	fmt.Printf("  Output       : %s\n", rankOutputDir)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("✅ Completed in %.2fs\n", res.Duration.Seconds())

	return nil
}
