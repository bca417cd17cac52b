package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/metrex/internal/contracts"
)

// PostgresRankStore mirrors ranked output into {schema}.ranked_pairs
type PostgresRankStore struct {
	pool      *pgxpool.Pool
	table     string
	schema    string
	timeframe string
}

// NewPostgresRankStore creates a store for one timeframe
func NewPostgresRankStore(pool *pgxpool.Pool, schema, timeframe string) *PostgresRankStore {
	return &PostgresRankStore{
		pool:      pool,
		schema:    schema,
		table:     pgx.Identifier{schema, "ranked_pairs"}.Sanitize(),
		timeframe: timeframe,
	}
}

// EnsureSchema creates the schema and table if they do not exist
func (s *PostgresRankStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{s.schema}.Sanitize()),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			pair                  TEXT             NOT NULL,
			timeframe             TEXT             NOT NULL,
			ts                    TIMESTAMPTZ      NOT NULL,
			open                  DOUBLE PRECISION NOT NULL,
			high                  DOUBLE PRECISION NOT NULL,
			low                   DOUBLE PRECISION NOT NULL,
			close                 DOUBLE PRECISION NOT NULL,
			volume                DOUBLE PRECISION NOT NULL,
			pairs_count           INTEGER          NOT NULL,
			change_percentage_24h DOUBLE PRECISION,
			top_gainer_rank       INTEGER,
			top_looser_rank       INTEGER,
			volume_in_currency    DOUBLE PRECISION,
			volume_in_currency_24 DOUBLE PRECISION,
			top_volume_rank       INTEGER,
			bottom_volume_rank    INTEGER,
			updated_at            TIMESTAMPTZ      NOT NULL DEFAULT now(),
			PRIMARY KEY (pair, timeframe, ts)
		)`, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Replace deletes the instrument's rows for this timeframe and inserts
// records, in one transaction
func (s *PostgresRankStore) Replace(ctx context.Context, instrument string, records []contracts.RankedRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	del := fmt.Sprintf(`DELETE FROM %s WHERE pair = $1 AND timeframe = $2`, s.table)
	if _, err := tx.Exec(ctx, del, instrument, s.timeframe); err != nil {
		return fmt.Errorf("failed to clear %s: %w", instrument, err)
	}
	if err := s.upsert(ctx, tx, instrument, records); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Append upserts only the added rows; rows already stored for the same
// timestamp are replaced
func (s *PostgresRankStore) Append(ctx context.Context, instrument string, _, added []contracts.RankedRecord) error {
	return s.upsert(ctx, s.pool, instrument, added)
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (s *PostgresRankStore) upsert(ctx context.Context, conn batchSender, instrument string, records []contracts.RankedRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(pair, timeframe, ts, open, high, low, close, volume, pairs_count,
			 change_percentage_24h, top_gainer_rank, top_looser_rank,
			 volume_in_currency, volume_in_currency_24, top_volume_rank, bottom_volume_rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (pair, timeframe, ts) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			pairs_count = EXCLUDED.pairs_count,
			change_percentage_24h = EXCLUDED.change_percentage_24h,
			top_gainer_rank = EXCLUDED.top_gainer_rank,
			top_looser_rank = EXCLUDED.top_looser_rank,
			volume_in_currency = EXCLUDED.volume_in_currency,
			volume_in_currency_24 = EXCLUDED.volume_in_currency_24,
			top_volume_rank = EXCLUDED.top_volume_rank,
			bottom_volume_rank = EXCLUDED.bottom_volume_rank,
			updated_at = now()`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, instrument, s.timeframe, r.Timestamp,
			r.Open, r.High, r.Low, r.Close, r.Volume, r.PairsCount,
			nullFloat(r.ChangePercentage24h), nullRank(r.TopGainerRank), nullRank(r.TopLooserRank),
			nullFloat(r.VolumeInCurrency), nullFloat(r.VolumeInCurrency24),
			nullRank(r.TopVolumeRank), nullRank(r.BottomVolumeRank))
	}

	br := conn.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", instrument, err)
		}
	}
	return br.Close()
}

// Load returns the stored records of an instrument, ascending
func (s *PostgresRankStore) Load(ctx context.Context, instrument string) ([]contracts.RankedRecord, error) {
	query := fmt.Sprintf(`
		SELECT ts, open, high, low, close, volume, pairs_count,
			   change_percentage_24h, top_gainer_rank, top_looser_rank,
			   volume_in_currency, volume_in_currency_24, top_volume_rank, bottom_volume_rank
		FROM %s
		WHERE pair = $1 AND timeframe = $2
		ORDER BY ts`, s.table)

	rows, err := s.pool.Query(ctx, query, instrument, s.timeframe)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", instrument, err)
	}
	defer rows.Close()

	var out []contracts.RankedRecord
	for rows.Next() {
		var r contracts.RankedRecord
		var change, vic, vic24 *float64
		var gainer, looser, top, bottom *int
		if err := rows.Scan(&r.Timestamp, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.PairsCount,
			&change, &gainer, &looser, &vic, &vic24, &top, &bottom); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", instrument, err)
		}
		r.Instrument = instrument
		r.Timestamp = r.Timestamp.UTC()
		r.ChangePercentage24h = floatOrNaN(change)
		r.VolumeInCurrency = floatOrNaN(vic)
		r.VolumeInCurrency24 = floatOrNaN(vic24)
		r.TopGainerRank = intOrZero(gainer)
		r.TopLooserRank = intOrZero(looser)
		r.TopVolumeRank = intOrZero(top)
		r.BottomVolumeRank = intOrZero(bottom)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullRank(rank int) interface{} {
	if rank <= 0 {
		return nil
	}
	return rank
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
