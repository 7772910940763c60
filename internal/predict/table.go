package predict

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"prediction-service/internal/model"
)

// Table is a parsed CSV upload: named columns and one record per data row.
type Table struct {
	Columns []string
	Rows    []model.Record
	// Duplicates lists header names that appeared again after their first
	// column. Only the first column's values are kept.
	Duplicates []string
}

// ReadCSVFile parses the CSV file at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses comma-separated data whose first row is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	names := make([]string, len(header))
	named := make(map[string]struct{}, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		names[i] = strings.TrimSpace(name)
		if names[i] != "" {
			named[names[i]] = struct{}{}
		}
	}

	table := &Table{}
	// positions[i] is the header index feeding table.Columns[i]; later
	// duplicates of a name are dropped and recorded.
	var positions []int
	seen := make(map[string]struct{}, len(header))
	for i, name := range names {
		if name == "" {
			name = placeholderName(i, named)
			named[name] = struct{}{}
		}
		if _, ok := seen[name]; ok {
			table.Duplicates = append(table.Duplicates, name)
			continue
		}
		seen[name] = struct{}{}
		table.Columns = append(table.Columns, name)
		positions = append(positions, i)
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(record), len(header))
		}
		row := make(model.Record, len(table.Columns))
		for i, name := range table.Columns {
			if pos := positions[i]; pos < len(record) {
				row[name] = strings.TrimSpace(record[pos])
			} else {
				row[name] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// placeholderName names a blank header cell, e.g. the index column pandas writes.
func placeholderName(pos int, taken map[string]struct{}) string {
	name := fmt.Sprintf("unnamed_%d", pos)
	for {
		if _, ok := taken[name]; !ok {
			return name
		}
		name += "_"
	}
}
