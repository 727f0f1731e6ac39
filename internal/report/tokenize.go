// Package report turns the delimited text served by the Steam partner site into
// records keyed by column name.
//
// The format is close to CSV but not close enough for encoding/csv: fields may be
// wrapped in double quotes anywhere (not only at field start), and a backslash escapes
// the next character, including the delimiter. The tokenizer is a best-effort lexer and
// never rejects a line.
package report

import (
	"strings"
	"unicode/utf8"
)

// Delimiter separates fields on a line.
const Delimiter = ','

// Tokenize splits one line into its fields.
//
// A double quote toggles quoted mode and is dropped. A backslash is dropped and the
// following character is taken literally. Commas inside quotes or after a backslash
// are kept as data. The last field is always emitted, even when empty, so a line with
// N separating commas yields N+1 fields.
//
// Each invalid UTF-8 byte becomes U+FFFD so every field can be stored as text.
// Callers that need to know use InvalidBytes.
func Tokenize(line string) []string {
	fields := make([]string, 0, strings.Count(line, string(Delimiter))+1)

	var (
		field         strings.Builder
		inQuotes      bool
		pendingEscape bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			// Quotes are never data, escaped or not.
			if !pendingEscape {
				inQuotes = !inQuotes
			}
			pendingEscape = false
		case pendingEscape:
			field.WriteRune(r)
			pendingEscape = false
		case r == '\\':
			pendingEscape = true
		case r == Delimiter && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}

	return append(fields, field.String())
}

// InvalidBytes counts the bytes of s that are not valid UTF-8.
func InvalidBytes(s string) int {
	n := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			n++
		}
		i += size
	}
	return n
}
