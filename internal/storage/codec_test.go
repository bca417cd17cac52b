package storage

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/metrex/internal/contracts"
)

var t0 = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func sampleTable() *contracts.Table {
	return &contracts.Table{
		Timestamps: []time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)},
		Columns: []*contracts.Column{
			contracts.NewFloatColumn("breadth_above_sma_50", []float64{50, math.NaN(), 66.66666666666667}),
			contracts.NewStringColumn("market_vol_regime", []string{"low", "", "high"}),
		},
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"out.feather", "feather", false},
		{"OUT.PARQUET", "parquet", false},
		{"dir/x.arrow", "arrow", false},
		{"x.csv", "csv", false},
		{"x.xlsx", "xlsx", false},
		{"x.json", "json", false},
		{"x.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, err := CodecFor(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestOutputCodecFor_RejectsReadOnly(t *testing.T) {
	_, err := OutputCodecFor("out.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = OutputCodecByName("json")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	c, err := OutputCodecByName("Feather")
	require.NoError(t, err)
	assert.Equal(t, ".feather", c.Extension())
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, c := range Codecs() {
		if !c.Writable() {
			continue
		}
		t.Run(c.Name(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "metrics"+c.Extension())
			in := sampleTable()

			require.NoError(t, c.Write(path, in))
			out, err := c.Read(path)
			require.NoError(t, err)

			require.Equal(t, in.Len(), out.Len())
			for i := range in.Timestamps {
				assert.True(t, in.Timestamps[i].Equal(out.Timestamps[i]), "row %d", i)
			}

			breadth := out.Column("breadth_above_sma_50")
			require.NotNil(t, breadth)
			assert.Equal(t, 50.0, breadth.Floats[0])
			assert.True(t, math.IsNaN(breadth.Floats[1]))
			assert.Equal(t, 66.66666666666667, breadth.Floats[2])

			regime := out.Column("market_vol_regime")
			require.NotNil(t, regime)
			assert.Equal(t, contracts.StringColumn, regime.Kind)
			assert.Equal(t, []string{"low", "", "high"}, regime.Strings)
		})
	}
}

func TestFeather_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.feather")
	b := filepath.Join(dir, "b.feather")

	require.NoError(t, FeatherCodec{}.Write(a, sampleTable()))
	require.NoError(t, FeatherCodec{}.Write(b, sampleTable()))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestCSV_ReadFreqtradeStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BTC_USDT-1h.csv")
	content := "open_time,open,high,low,close,volume\n" +
		"2023-06-01 00:00:00+00:00,1,2,0.5,1.5,10\n" +
		"2023-06-01 01:00:00,1.5,2,1,2,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := CSVCodec{}.Read(path)
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, t0.Add(time.Hour), table.Timestamps[1])
	assert.Equal(t, 1.5, table.Column("close").Floats[0])
	assert.True(t, math.IsNaN(table.Column("volume").Floats[1]))
}

func TestCSV_NoTimeColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("open,close\n1,2\n"), 0o644))

	_, err := CSVCodec{}.Read(path)
	assert.Error(t, err)
}

func TestJSON_ReadFreqtradeCandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ETH_USDT-1h.json")
	content := `[[1685577600000,1.0,2.0,0.5,1.5,10.0],[1685581200000,1.5,2.5,1.0,2.0,null]]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := JSONCodec{}.Read(path)
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, t0, table.Timestamps[0])
	assert.Equal(t, []string{"open", "high", "low", "close", "volume"}, table.ColumnNames())
	assert.Equal(t, 2.0, table.Column("close").Floats[1])
	assert.True(t, math.IsNaN(table.Column("volume").Floats[1]))

	err = JSONCodec{}.Write(path, table)
	assert.ErrorIs(t, err, ErrReadOnlyFormat)
}

func TestWrite_InvalidTable(t *testing.T) {
	bad := &contracts.Table{
		Timestamps: []time.Time{t0},
		Columns:    []*contracts.Column{contracts.NewFloatColumn("x", nil)},
	}
	for _, c := range Codecs() {
		if !c.Writable() {
			continue
		}
		path := filepath.Join(t.TempDir(), "bad"+c.Extension())
		assert.Error(t, c.Write(path, bad), c.Name())
	}
}
