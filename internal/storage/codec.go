// Package storage is the persistence adapter: table codecs selected by file
// extension and the stores that keep per-instrument ranking output.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wonny/metrex/internal/contracts"
)

// ErrUnknownFormat is returned for a file extension no codec handles
var ErrUnknownFormat = errors.New("unknown file format")

// ErrReadOnlyFormat is returned when writing through a read-only codec
var ErrReadOnlyFormat = errors.New("format is read-only")

// Codec encodes and decodes a timestamp-indexed table
// ⭐ SSOT: 파일 포맷 선택은 확장자로만
type Codec interface {
	Name() string
	Extension() string
	Writable() bool
	Read(path string) (*contracts.Table, error)
	Write(path string, table *contracts.Table) error
}

// codecs is ordered by preference when one instrument has several sources
var codecs = []Codec{
	FeatherCodec{},
	ParquetCodec{},
	ArrowCodec{},
	JSONCodec{},
	CSVCodec{},
	XLSXCodec{},
}

// Codecs returns every codec in preference order
func Codecs() []Codec {
	out := make([]Codec, len(codecs))
	copy(out, codecs)
	return out
}

// CodecByName returns the codec registered under name ("feather", "csv", ...)
func CodecByName(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	for _, c := range codecs {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// CodecFor returns the codec for path's extension
func CodecFor(path string) (Codec, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	for _, c := range codecs {
		if strings.EqualFold(c.Extension(), ext) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// OutputCodecFor is CodecFor restricted to writable codecs
func OutputCodecFor(path string) (Codec, error) {
	c, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	if !c.Writable() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return c, nil
}

// OutputCodecByName is CodecByName restricted to writable codecs
func OutputCodecByName(name string) (Codec, error) {
	c, err := CodecByName(name)
	if err != nil {
		return nil, err
	}
	if !c.Writable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return c, nil
}
