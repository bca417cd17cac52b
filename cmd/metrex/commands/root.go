package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/metrex/internal/metrics"
	"github.com/wonny/metrex/internal/pipeline"
	"github.com/wonny/metrex/internal/ranking"
	"github.com/wonny/metrex/pkg/config"
	"github.com/wonny/metrex/pkg/logger"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "metrex",
	Short: "metrex - 시장 지표 및 횡단면 랭킹",
	Long: `metrex CLI

거래소 캔들 파일로부터 시장 전체 지표와 종목별 24h 랭킹을 계산합니다.

Usage:
  go run ./cmd/metrex [command]

Examples:
  go run ./cmd/metrex list
  go run ./cmd/metrex metrics --timerange 20230601-20230615 --all-metrics --output out/metrics.feather
  go run ./cmd/metrex rank --timerange latest- --output-dir out/ranked
  go run ./cmd/metrex scheduler start --jobs jobs.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadRuntime loads config and logger, applying the global flags
func loadRuntime() (*config.Config, *logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}

// newProcessor builds the metric registry and the batch processor
func newProcessor(cfg *config.Config, log *logger.Logger) (*pipeline.Processor, *metrics.Registry, error) {
	registry, err := metrics.NewDefaultRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("build metric registry: %w", err)
	}

	proc := pipeline.NewProcessor(registry, ranking.NewEngine(log), pipeline.Options{
		Workers:    cfg.Data.Workers,
		References: cfg.Data.References,
	}, log)

	return proc, registry, nil
}
