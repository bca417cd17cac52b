package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/wonny/metrex/internal/contracts"
)

// RankStore persists the ranked output of one instrument
// ⭐ SSOT: 증분 실행 사이에 남는 유일한 상태
type RankStore interface {
	// Load returns the persisted records, or nil when the instrument has no state
	Load(ctx context.Context, instrument string) ([]contracts.RankedRecord, error)
	// Replace makes records the whole persisted state of the instrument
	Replace(ctx context.Context, instrument string, records []contracts.RankedRecord) error
	// Append extends the persisted state with added. merged is the state
	// after the append, for stores that rewrite the whole output.
	Append(ctx context.Context, instrument string, merged, added []contracts.RankedRecord) error
}

// FileRankStore keeps one file per instrument: {dir}/{instrument}-{timeframe}{ext}
type FileRankStore struct {
	dir       string
	timeframe string
	codec     Codec
}

// NewFileRankStore creates a file store writing through codec
func NewFileRankStore(dir, timeframe string, codec Codec) (*FileRankStore, error) {
	if !codec.Writable() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyFormat, codec.Name())
	}
	return &FileRankStore{dir: dir, timeframe: timeframe, codec: codec}, nil
}

// Path returns the output file of an instrument
func (s *FileRankStore) Path(instrument string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s%s", instrument, s.timeframe, s.codec.Extension()))
}

// Load reads the instrument's file. A missing file means no prior state.
func (s *FileRankStore) Load(_ context.Context, instrument string) ([]contracts.RankedRecord, error) {
	path := s.Path(instrument)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	table, err := s.codec.Read(path)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return contracts.TableToRecords(instrument, table)
}

// Replace writes the codec output to a pending file in the same directory and
// atomically renames it over the target
func (s *FileRankStore) Replace(_ context.Context, instrument string, records []contracts.RankedRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}

	target := s.Path(instrument)
	pf, err := renameio.NewPendingFile(target, renameio.WithPermissions(0o644), renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("failed to create pending file for %s: %w", target, err)
	}
	defer pf.Cleanup()

	// codecs open by path; the pending file keeps the same inode
	if err := s.codec.Write(pf.Name(), contracts.RecordsToTable(records)); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

// Append rewrites the file with the merged records
func (s *FileRankStore) Append(ctx context.Context, instrument string, merged, _ []contracts.RankedRecord) error {
	return s.Replace(ctx, instrument, merged)
}

// MultiRankStore reads from the primary store and writes to the primary and every mirror
type MultiRankStore struct {
	primary RankStore
	mirrors []RankStore
}

// NewMultiRankStore creates a store that mirrors every write
func NewMultiRankStore(primary RankStore, mirrors ...RankStore) *MultiRankStore {
	return &MultiRankStore{primary: primary, mirrors: mirrors}
}

func (m *MultiRankStore) Load(ctx context.Context, instrument string) ([]contracts.RankedRecord, error) {
	return m.primary.Load(ctx, instrument)
}

func (m *MultiRankStore) Replace(ctx context.Context, instrument string, records []contracts.RankedRecord) error {
	return m.each(instrument, func(store RankStore) error {
		return store.Replace(ctx, instrument, records)
	})
}

func (m *MultiRankStore) Append(ctx context.Context, instrument string, merged, added []contracts.RankedRecord) error {
	return m.each(instrument, func(store RankStore) error {
		return store.Append(ctx, instrument, merged, added)
	})
}

func (m *MultiRankStore) each(instrument string, write func(RankStore) error) error {
	if err := write(m.primary); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := write(mirror); err != nil {
			return fmt.Errorf("mirror write %s: %w", instrument, err)
		}
	}
	return nil
}
