package scheduler

import (
	"github.com/robfig/cron/v3"

	"github.com/wonny/metrex/pkg/logger"
)

// cronLogger routes cron's own messages (skipped runs, panics) to our logger
type cronLogger struct {
	log *logger.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	z := l.log.Zerolog()
	z.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z := l.log.Zerolog()
	z.Error().Str("component", "cron").Err(err).Fields(keysAndValues).Msg(msg)
}
