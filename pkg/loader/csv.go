// Package loader reads CSV matrices into tensors. The reference outputs the
// test suite compares against are stored this way.
package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/itohio/tinyinfer/pkg/tensor"
)

// LoadCSV reads a comma-separated matrix into a (1, rows, cols) tensor.
func LoadCSV(path string) (*tensor.Tensor, error) {
	return load(path, false)
}

// LoadCSVWithHeader reads a comma-separated matrix whose first row is a
// header line to skip.
func LoadCSVWithHeader(path string) (*tensor.Tensor, error) {
	return load(path, true)
}

func load(path string, header bool) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if header {
		if len(records) == 0 {
			return nil, fmt.Errorf("loader: %s: missing header", path)
		}
		records = records[1:]
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("loader: %s: empty matrix", path)
	}

	rows := len(records)
	cols := len(records[0])
	values := make([]float32, 0, rows*cols)
	for r, record := range records {
		if len(record) != cols {
			return nil, fmt.Errorf("loader: %s: row %d has %d fields, want %d", path, r, len(record), cols)
		}
		for c, field := range record {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("loader: %s: field (%d,%d): %w", path, r, c, err)
			}
			values = append(values, float32(v))
		}
	}

	t := tensor.New(1, rows, cols)
	t.FillValues(values, true)
	return t, nil
}
