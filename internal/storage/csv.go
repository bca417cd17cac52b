package storage

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/wonny/metrex/internal/contracts"
)

// CSVCodec reads and writes comma-separated text with a header row
type CSVCodec struct{}

func (CSVCodec) Name() string      { return "csv" }
func (CSVCodec) Extension() string { return ".csv" }
func (CSVCodec) Writable() bool    { return true }

func (CSVCodec) Read(path string) (*contracts.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	table, err := gridToTable(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func (CSVCodec) Write(path string, table *contracts.Table) error {
	rows, err := tableToGrid(table)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
