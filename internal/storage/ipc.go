package storage

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/wonny/metrex/internal/contracts"
)

// FeatherCodec reads and writes Feather v2 (Arrow IPC file, LZ4 frame compressed)
type FeatherCodec struct{}

func (FeatherCodec) Name() string      { return "feather" }
func (FeatherCodec) Extension() string { return ".feather" }
func (FeatherCodec) Writable() bool    { return true }

func (FeatherCodec) Read(path string) (*contracts.Table, error) {
	return readIPC(path)
}

func (FeatherCodec) Write(path string, table *contracts.Table) error {
	return writeIPC(path, table, ipc.WithLZ4())
}

// ArrowCodec reads and writes uncompressed Arrow IPC files
type ArrowCodec struct{}

func (ArrowCodec) Name() string      { return "arrow" }
func (ArrowCodec) Extension() string { return ".arrow" }
func (ArrowCodec) Writable() bool    { return true }

func (ArrowCodec) Read(path string) (*contracts.Table, error) {
	return readIPC(path)
}

func (ArrowCodec) Write(path string, table *contracts.Table) error {
	return writeIPC(path, table)
}

func writeIPC(path string, table *contracts.Table, opts ...ipc.Option) error {
	mem := memory.NewGoAllocator()

	rec, err := tableToRecord(mem, table)
	if err != nil {
		return err
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	opts = append(opts, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	w, err := ipc.NewFileWriter(f, opts...)
	if err != nil {
		return fmt.Errorf("failed to open ipc writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return f.Close()
}

func readIPC(path string) (*contracts.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer r.Close()

	records := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch %d of %s: %w", i, path, err)
		}
		rec.Retain()
		records = append(records, rec)
	}

	table, err := recordsToTable(r.Schema(), records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
