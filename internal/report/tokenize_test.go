package report

import (
	"reflect"
	"strings"
	"testing"
)

// ============================================================================
// Tokenize Tests
// ============================================================================

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "simple fields",
			line: "a,b,c",
			want: []string{"a", "b", "c"},
		},
		{
			name: "quoted comma is data",
			line: `a,"b,c",d`,
			want: []string{"a", "b,c", "d"},
		},
		{
			name: "escaped comma is data",
			line: `a\,b,c`,
			want: []string{"a,b", "c"},
		},
		{
			name: "escaped backslash",
			line: `a\\b,c`,
			want: []string{`a\b`, "c"},
		},
		{
			name: "escaped quote does not toggle",
			line: `a\",b`,
			want: []string{"a", "b"},
		},
		{
			name: "quotes dropped mid field",
			line: `ab"cd"ef,g`,
			want: []string{"abcdef", "g"},
		},
		{
			name: "empty line yields one empty field",
			line: "",
			want: []string{""},
		},
		{
			name: "trailing comma yields empty last field",
			line: "a,b,",
			want: []string{"a", "b", ""},
		},
		{
			name: "leading comma",
			line: ",a",
			want: []string{"", "a"},
		},
		{
			name: "consecutive commas",
			line: "a,,b",
			want: []string{"a", "", "b"},
		},
		{
			name: "unterminated quote swallows rest",
			line: `a,"b,c`,
			want: []string{"a", "b,c"},
		},
		{
			name: "trailing backslash dropped",
			line: `a,b\`,
			want: []string{"a", "b"},
		},
		{
			name: "whitespace kept",
			line: " a , b ",
			want: []string{" a ", " b "},
		},
		{
			name: "carriage return kept for caller to trim",
			line: "a,b\r",
			want: []string{"a", "b\r"},
		},
		{
			name: "unicode preserved",
			line: `Café,"Zürich, CH",東京`,
			want: []string{"Café", "Zürich, CH", "東京"},
		},
		{
			name: "sales row with quoted product name",
			line: `2024-01-01,42,"Bundle, Deluxe",1001,Game`,
			want: []string{"2024-01-01", "42", "Bundle, Deluxe", "1001", "Game"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

// TestTokenize_FieldCount checks that the field count is the number of separating
// commas plus one for lines without quotes or escapes.
func TestTokenize_FieldCount(t *testing.T) {
	lines := []string{
		"",
		"a",
		"a,b",
		",,,",
		"Date,Bundle(ID#),Bundle Name,Product(ID#)",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			want := strings.Count(line, ",") + 1
			if got := len(Tokenize(line)); got != want {
				t.Errorf("len(Tokenize(%q)) = %d, want %d", line, got, want)
			}
		})
	}
}

// TestTokenize_QuotedCommasDoNotCount checks that quoted commas add no fields.
func TestTokenize_QuotedCommasDoNotCount(t *testing.T) {
	line := `x,"1,2,3",y,"a,b"`
	if got := len(Tokenize(line)); got != 4 {
		t.Errorf("len(Tokenize(%q)) = %d, want 4", line, got)
	}
}

func TestTokenize_InvalidUTF8(t *testing.T) {
	got := Tokenize("a\xff,b")
	want := []string{"a\uFFFD", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %q, want %q", got, want)
	}
}

func TestInvalidBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"plain,ascii", 0},
		{"Österreich,€", 0},
		{"a\xff,b", 1},
		{"\xc3\x28,\xff\xfe", 3},
	}
	for _, tt := range tests {
		if got := InvalidBytes(tt.in); got != tt.want {
			t.Errorf("InvalidBytes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
