package pipeline

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/storage"
)

func fileStore(t *testing.T, dir string) *storage.FileRankStore {
	t.Helper()
	store, err := storage.NewFileRankStore(dir, "1h", storage.FeatherCodec{})
	require.NoError(t, err)
	return store
}

func rankRequest(dataDir, timerange string) RankRequest {
	return RankRequest{
		Source:    Source{DataDir: dataDir, Timeframe: "1h"},
		Timerange: timerange,
	}
}

func TestRunRanking_AnchoredIncremental(t *testing.T) {
	ctx := context.Background()
	dataDir := seedMarket(t, 72)
	outDir := t.TempDir()
	store := fileStore(t, outDir)
	p := newProcessor(t)

	// first run: no state, everything is written
	res, err := p.RunRanking(ctx, rankRequest(dataDir, "latest-"), store)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 3*72, res.Rows)

	btcPath := store.Path("BTC_USDT")
	before, err := os.ReadFile(btcPath)
	require.NoError(t, err)

	// second run, no new data: untouched
	res, err = p.RunRanking(ctx, rankRequest(dataDir, "latest-"), store)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 3, res.Unchanged)

	after, err := os.ReadFile(btcPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// new data: exactly the new timestamps are appended
	writeMarket(t, dataDir, 80)
	res, err = p.RunRanking(ctx, rankRequest(dataDir, "latest-"), store)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 3*8, res.Rows)

	records, err := store.Load(ctx, "BTC_USDT")
	require.NoError(t, err)
	require.Len(t, records, 80)
	for i, r := range records {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Hour), r.Timestamp)
	}
	assert.Equal(t, 3, records[79].PairsCount)
	assert.False(t, math.IsNaN(records[79].ChangePercentage24h), "lookback seeds the 24h lag")
}

func TestRunRanking_IncrementalMatchesFullRecompute(t *testing.T) {
	ctx := context.Background()
	dataDir := seedMarket(t, 60)
	p := newProcessor(t)

	incremental := fileStore(t, t.TempDir())
	_, err := p.RunRanking(ctx, rankRequest(dataDir, "latest-"), incremental)
	require.NoError(t, err)
	writeMarket(t, dataDir, 90)
	_, err = p.RunRanking(ctx, rankRequest(dataDir, "latest-"), incremental)
	require.NoError(t, err)

	full := fileStore(t, t.TempDir())
	_, err = p.RunRanking(ctx, rankRequest(dataDir, "latest-"), full)
	require.NoError(t, err)

	for _, inst := range []string{"BTC_USDT", "ETH_USDT", "SOL_USDT"} {
		a, err := os.ReadFile(incremental.Path(inst))
		require.NoError(t, err)
		b, err := os.ReadFile(full.Path(inst))
		require.NoError(t, err)
		assert.Equal(t, b, a, inst)
	}
}

func TestRunRanking_NewInstrumentSeesFullCrossSection(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	writeHourly(t, dataDir, "BTC_USDT", 0, 100, func(h int) float64 { return 30000 + float64(h%17)*25 })
	writeHourly(t, dataDir, "ETH_USDT", 0, 100, func(h int) float64 { return 1800 + float64(h%11)*3 })
	p := newProcessor(t)

	incremental := fileStore(t, t.TempDir())
	_, err := p.RunRanking(ctx, rankRequest(dataDir, "latest-"), incremental)
	require.NoError(t, err)

	// SOL_USDT arrives with its full backfill
	writeMarket(t, dataDir, 102)
	res, err := p.RunRanking(ctx, rankRequest(dataDir, "latest-"), incremental)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 2+2+102, res.Rows)

	full := fileStore(t, t.TempDir())
	_, err = p.RunRanking(ctx, rankRequest(dataDir, "latest-"), full)
	require.NoError(t, err)

	a, err := os.ReadFile(incremental.Path("SOL_USDT"))
	require.NoError(t, err)
	b, err := os.ReadFile(full.Path("SOL_USDT"))
	require.NoError(t, err)
	assert.Equal(t, b, a)

	sol, err := incremental.Load(ctx, "SOL_USDT")
	require.NoError(t, err)
	require.Len(t, sol, 102)
	for _, r := range sol {
		assert.Equal(t, 3, r.PairsCount, r.Timestamp)
	}

	// the appended BTC_USDT rows match a full recompute
	got, err := incremental.Load(ctx, "BTC_USDT")
	require.NoError(t, err)
	want, err := full.Load(ctx, "BTC_USDT")
	require.NoError(t, err)
	require.Len(t, got, 102)
	require.Len(t, want, 102)
	for i := 100; i < 102; i++ {
		assert.Equal(t, want[i].Timestamp, got[i].Timestamp)
		assert.Equal(t, want[i].PairsCount, got[i].PairsCount)
		assert.Equal(t, want[i].TopGainerRank, got[i].TopGainerRank)
		assert.Equal(t, want[i].TopLooserRank, got[i].TopLooserRank)
		assert.Equal(t, want[i].TopVolumeRank, got[i].TopVolumeRank)
		assert.Equal(t, want[i].BottomVolumeRank, got[i].BottomVolumeRank)
		assert.InDelta(t, want[i].ChangePercentage24h, got[i].ChangePercentage24h, 1e-12)
		assert.InDelta(t, want[i].VolumeInCurrency24, got[i].VolumeInCurrency24, 1e-6)
	}
}

// mirrorStore records what a mirror receives
type mirrorStore struct {
	replaced map[string]int
	appended map[string][]contracts.RankedRecord
}

func newMirrorStore() *mirrorStore {
	return &mirrorStore{replaced: map[string]int{}, appended: map[string][]contracts.RankedRecord{}}
}

func (m *mirrorStore) Load(context.Context, string) ([]contracts.RankedRecord, error) {
	return nil, nil
}

func (m *mirrorStore) Replace(_ context.Context, instrument string, records []contracts.RankedRecord) error {
	m.replaced[instrument] = len(records)
	return nil
}

func (m *mirrorStore) Append(_ context.Context, instrument string, _, added []contracts.RankedRecord) error {
	m.appended[instrument] = append(m.appended[instrument], added...)
	return nil
}

func TestRunRanking_MirrorReceivesOnlyNewRows(t *testing.T) {
	ctx := context.Background()
	dataDir := seedMarket(t, 48)
	mirror := newMirrorStore()
	store := storage.NewMultiRankStore(fileStore(t, t.TempDir()), mirror)
	p := newProcessor(t)

	_, err := p.RunRanking(ctx, rankRequest(dataDir, "latest-"), store)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"BTC_USDT": 48, "ETH_USDT": 48, "SOL_USDT": 48}, mirror.replaced)
	assert.Empty(t, mirror.appended)

	writeMarket(t, dataDir, 50)
	_, err = p.RunRanking(ctx, rankRequest(dataDir, "latest-"), store)
	require.NoError(t, err)
	for _, inst := range []string{"BTC_USDT", "ETH_USDT", "SOL_USDT"} {
		added := mirror.appended[inst]
		require.Len(t, added, 2, inst)
		assert.Equal(t, t0.Add(48*time.Hour), added[0].Timestamp)
		assert.Equal(t, t0.Add(49*time.Hour), added[1].Timestamp)
		assert.Equal(t, 48, mirror.replaced[inst], "anchored extension does not replace")
	}

	// fixed range: the mirror is told to drop what it had
	_, err = p.RunRanking(ctx, rankRequest(dataDir, "20230601-20230601"), store)
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.replaced["SOL_USDT"])
}

func TestRunRanking_CorruptStateDegrades(t *testing.T) {
	ctx := context.Background()
	dataDir := seedMarket(t, 48)
	outDir := t.TempDir()
	store := fileStore(t, outDir)

	require.NoError(t, os.WriteFile(store.Path("ETH_USDT"), []byte("corrupt"), 0o644))

	res, err := newProcessor(t).RunRanking(ctx, rankRequest(dataDir, "latest-"), store)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)

	records, err := store.Load(ctx, "ETH_USDT")
	require.NoError(t, err)
	assert.Len(t, records, 48)
}

func TestRunRanking_FixedOverwrites(t *testing.T) {
	ctx := context.Background()
	dataDir := seedMarket(t, 96)
	store := fileStore(t, t.TempDir())
	p := newProcessor(t)

	_, err := p.RunRanking(ctx, rankRequest(dataDir, "20230601-20230604"), store)
	require.NoError(t, err)
	res, err := p.RunRanking(ctx, rankRequest(dataDir, "20230602-20230603"), store)
	require.NoError(t, err)
	assert.False(t, res.Anchored)

	records, err := store.Load(ctx, "SOL_USDT")
	require.NoError(t, err)
	require.Len(t, records, 25)
	assert.Equal(t, time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), records[0].Timestamp)
}

func TestRunRanking_InvalidRange(t *testing.T) {
	_, err := newProcessor(t).RunRanking(context.Background(), rankRequest(t.TempDir(), "latest"), fileStore(t, t.TempDir()))
	assert.Error(t, err)
}
