package core

import (
	"reflect"
	"testing"
)

func TestParseIndicators(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"comma and newline mixed", "a, b\nc", []string{"a", "b", "c"}},
		{"separators only", " , ,\n", []string{}},
		{"empty input", "", []string{}},
		{"whitespace only", "   \t  ", []string{}},
		{"run of separators is one split point", "a,,,\n\n,b", []string{"a", "b"}},
		{"trims each piece", "  1.2.3.4  ,\t evil.example.com \n", []string{"1.2.3.4", "evil.example.com"}},
		{"single indicator", "103.246.147.17", []string{"103.246.147.17"}},
		{"duplicates preserved", "x,x,x", []string{"x", "x", "x"}},
		{"order preserved", "c,a,b", []string{"c", "a", "b"}},
		{"spaces are not separators", "not a valid thing!!", []string{"not a valid thing!!"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseIndicators(tc.raw)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("ParseIndicators(%q) = %v, want %v", tc.raw, got, tc.expected)
			}
		})
	}
}
