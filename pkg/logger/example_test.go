package logger_test

import (
	"errors"

	"github.com/wonny/metrex/pkg/config"
	"github.com/wonny/metrex/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Loading candles")
	log.Warnf("Skipped %d unreadable sources", 2)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"instrument": "ETH_USDT",
		"timeframe":  "1h",
		"rows":       336,
	}).Info("Source loaded")

	log.WithError(errors.New("no timestamp column")).
		WithField("file", "XRP_USDT-1h.feather").
		Warn("Failed to load source")
}
