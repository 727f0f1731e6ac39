package report

import (
	"errors"
	"strings"
)

// PreambleLines is the number of leading non-data lines in every report.
const PreambleLines = 2

// ErrNoHeader is returned when a payload has no header line after the preamble.
var ErrNoHeader = errors.New("report has no header row")

// Record maps a header name to the field value found at the same position.
type Record map[string]string

// Get returns the value for a column, or "" when the row did not reach it.
func (r Record) Get(column string) string {
	return r[column]
}

// Has reports whether the row carried a value for column.
func (r Record) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Decode applies header to every row.
// Names and values are trimmed. A row shorter than the header simply lacks the
// trailing columns; fields past the end of the header are ignored.
func Decode(header []string, rows [][]string) []Record {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(names))
		for i, name := range names {
			if i >= len(row) {
				break
			}
			rec[name] = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}
	return records
}

// Parse decodes a whole report payload.
//
// Lines are split on '\n' and lines that are blank after trimming are dropped before
// anything else. The first two remaining lines are preamble, the third is the header
// and the rest are data rows.
func Parse(raw string) ([]string, []Record, error) {
	lines := nonBlankLines(raw)
	if len(lines) <= PreambleLines {
		return nil, nil, ErrNoHeader
	}
	lines = lines[PreambleLines:]

	header := Tokenize(lines[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, Tokenize(line))
	}

	return header, Decode(header, rows), nil
}

func nonBlankLines(raw string) []string {
	all := strings.Split(raw, "\n")
	lines := all[:0]
	for _, line := range all {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
