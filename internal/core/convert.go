package core

// convert.go turns report strings into pgtype values and typed values into
// comparable natural-key parts.
//
// All ToPg* functions return pgtype values with Valid=false for empty/invalid input,
// allowing the database to handle NULLs appropriately. Key parts are computed from
// the same pgtype values whether they came from a report row or from the database,
// so "12.50" in a report and 12.5 in a NUMERIC column produce the same key.

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation (which Scan then rejects).
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order. Reports use ISO dates; the rest cover
// hand-edited files fed to the parse command.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02",
	"1/2/2006", "01/02/2006",
	"Jan 2, 2006", "2 Jan 2006",
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a string to pgtype.Date at midnight UTC.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t.UTC(), Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// ToPgTimestamptz converts an RFC 3339 string to pgtype.Timestamptz.
func ToPgTimestamptz(s string) pgtype.Timestamptz {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles thousands separators and accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ToPgInt8 converts an integer string to pgtype.Int8.
// Thousands separators are accepted; fractions are not.
func ToPgInt8(s string) pgtype.Int8 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return pgtype.Int8{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ============================================================================
// Natural keys
// ============================================================================

const (
	keySep  = "\x1f"
	keyNull = "\x00"
)

// JoinKey joins key parts into one natural key.
func JoinKey(parts ...string) string {
	return strings.Join(parts, keySep)
}

// TextKey returns the key part for a text value.
func TextKey(t pgtype.Text) string {
	if !t.Valid {
		return keyNull
	}
	return t.String
}

// DateKey returns the key part for a date, at day granularity.
func DateKey(d pgtype.Date) string {
	if !d.Valid {
		return keyNull
	}
	return d.Time.UTC().Format("2006-01-02")
}

// Int8Key returns the key part for an integer.
func Int8Key(i pgtype.Int8) string {
	if !i.Valid {
		return keyNull
	}
	return strconv.FormatInt(i.Int64, 10)
}

// NumericKey returns the key part for a numeric value. Trailing zeros are
// removed first so equal values with different scales share a key.
func NumericKey(n pgtype.Numeric) string {
	switch {
	case !n.Valid:
		return keyNull
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	case n.Int == nil || n.Int.Sign() == 0:
		return "0"
	}

	digits := new(big.Int).Set(n.Int)
	exp := n.Exp
	ten := big.NewInt(10)
	rem := new(big.Int)
	for {
		q, r := new(big.Int).QuoRem(digits, ten, rem)
		if r.Sign() != 0 {
			break
		}
		digits = q
		exp++
	}
	return digits.String() + "e" + strconv.FormatInt(int64(exp), 10)
}
