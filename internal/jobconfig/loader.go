package jobconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a job file
// ⭐ SSOT: KnownFields(true)로 오타 필드 즉시 실패
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a job file from YAML bytes
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode job file: %w", err)
	}

	f.applyDefaults()

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}
