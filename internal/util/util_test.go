package util

import (
	"reflect"
	"testing"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no escaped quotes", "hello", "hello"},
		{"single escaped quote", `he""llo`, `he"llo`},
		{"multiple escaped quotes", `a""b""c`, `a"b"c`},
		{"consecutive escaped", `a""""b`, `a""b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FixEscapeQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("FixEscapeQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSplitArrayFields(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"not bracketed", "1,2,3", nil},
		{"empty input", "", nil},
		{"empty array", "[]", []string{}},
		{"single field", `["Kerbal X"]`, []string{`"Kerbal X"`}},
		{"plain numbers", "[1,2,3]", []string{"1", "2", "3"}},
		{"spaces around fields", "[1, 2, 3]", []string{"1", "2", "3"}},
		{
			"quoted strings keep quotes",
			`[0,"Mk1 Command Pod","commandPod"]`,
			[]string{"0", `"Mk1 Command Pod"`, `"commandPod"`},
		},
		{
			"comma inside quotes",
			`["a,b",1]`,
			[]string{`"a,b"`, "1"},
		},
		{
			"escaped quotes inside string",
			`["say ""go"",now",5]`,
			[]string{`"say ""go"",now"`, "5"},
		},
		{
			"nested array stays one field",
			`[1,[2,3],4]`,
			[]string{"1", "[2,3]", "4"},
		},
		{
			"nested object stays one field",
			`[1,{"a":2,"b":3}]`,
			[]string{"1", `{"a":2,"b":3}`},
		},
		{
			"part row",
			`[1, -1, "FL-T400 Fuel Tank", "fuelTank", 0, 2000, 0, 50, true]`,
			[]string{"1", "-1", `"FL-T400 Fuel Tank"`, `"fuelTank"`, "0", "2000", "0", "50", "true"},
		},
		{"surrounding whitespace", "  [1,2]  ", []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SplitArrayFields(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("SplitArrayFields(%q) = %#v, want %#v", tt.input, result, tt.expected)
			}
		})
	}
}
