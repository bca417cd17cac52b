package storage

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/metrex/internal/contracts"
)

const xlsxSheet = "Sheet1"

// XLSXCodec reads and writes Excel workbooks (first sheet, header row)
type XLSXCodec struct{}

func (XLSXCodec) Name() string      { return "xlsx" }
func (XLSXCodec) Extension() string { return ".xlsx" }
func (XLSXCodec) Writable() bool    { return true }

func (XLSXCodec) Read(path string) (*contracts.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", path, err)
	}

	table, err := gridToTable(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func (XLSXCodec) Write(path string, table *contracts.Table) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, 0, len(table.Columns)+1)
	header = append(header, contracts.TimeColumn)
	for _, c := range table.Columns {
		header = append(header, c.Name)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, ts := range table.Timestamps {
		row := make([]interface{}, 0, len(header))
		row = append(row, ts.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
		for _, c := range table.Columns {
			row = append(row, xlsxCell(c, i))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func xlsxCell(c *contracts.Column, i int) interface{} {
	if c.Kind == contracts.StringColumn {
		if c.Strings[i] == "" {
			return nil
		}
		return c.Strings[i]
	}
	if math.IsNaN(c.Floats[i]) {
		return nil
	}
	return c.Floats[i]
}
