package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Record is one row of an annotated-CSV query result, keyed by column
// name. Values stay strings; callers convert what they need.
type Record map[string]string

// Value returns the `_value` column.
func (r Record) Value() string { return r["_value"] }

// Tag returns a tag column by name.
func (r Record) Tag(name string) string { return r[name] }

// parseAnnotatedCSV parses the store's annotated-CSV query output into
// records. Annotation lines (leading '#') are skipped; each blank line
// starts a new table with its own header row.
func parseAnnotatedCSV(body io.Reader) ([]Record, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	var (
		records []Record
		header  []string
	)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing query CSV: %w", err)
		}

		// Blank separator between tables: next non-annotation row is a
		// fresh header.
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			header = nil
			continue
		}
		if strings.HasPrefix(row[0], "#") {
			continue
		}
		if header == nil {
			header = row
			continue
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			rec[col] = row[i]
		}
		records = append(records, rec)
	}

	return records, nil
}
