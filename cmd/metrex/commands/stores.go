package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/metrex/internal/jobconfig"
	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/pkg/config"
	"github.com/wonny/metrex/pkg/database"
	"github.com/wonny/metrex/pkg/logger"
)

// rankStores opens rank stores for rank runs. Runs that mirror to
// Postgres share one pool, created on first use.
type rankStores struct {
	cfg *config.Config
	log *logger.Logger

	mu sync.Mutex
	db *database.DB
	pg map[string]*storage.PostgresRankStore // by timeframe
}

func newRankStores(cfg *config.Config, log *logger.Logger) *rankStores {
	return &rankStores{cfg: cfg, log: log, pg: make(map[string]*storage.PostgresRankStore)}
}

func (s *rankStores) open(ctx context.Context, job jobconfig.Job) (storage.RankStore, error) {
	format := job.Format
	if format == "" {
		format = s.cfg.Data.OutputFormat
	}
	codec, err := storage.OutputCodecByName(format)
	if err != nil {
		return nil, err
	}
	files, err := storage.NewFileRankStore(job.Output, job.Timeframe, codec)
	if err != nil {
		return nil, err
	}
	if !job.Database {
		return files, nil
	}

	pg, err := s.postgres(ctx, job.Timeframe)
	if err != nil {
		return nil, err
	}
	return storage.NewMultiRankStore(files, pg), nil
}

func (s *rankStores) postgres(ctx context.Context, timeframe string) (*storage.PostgresRankStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pg, ok := s.pg[timeframe]; ok {
		return pg, nil
	}

	if s.db == nil {
		db, err := database.New(ctx, s.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s.db = db
	}

	pg := storage.NewPostgresRankStore(s.db.Pool, s.cfg.Database.Schema, timeframe)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s.pg[timeframe] = pg
	s.log.WithField("timeframe", timeframe).Info("PostgreSQL rank mirror ready")
	return pg, nil
}

func (s *rankStores) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}
