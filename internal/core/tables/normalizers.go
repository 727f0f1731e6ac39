package tables

import (
	"strings"

	"github.com/JonMunkholm/steamsync/internal/report"
)

// cell returns the trimmed value of column, or "" when the row did not reach it.
func cell(rec report.Record, column string) string {
	return strings.TrimSpace(rec.Get(column))
}
