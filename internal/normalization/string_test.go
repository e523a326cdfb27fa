package normalization

import "testing"

func TestParseInputString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Ana@Example.COM ", "ana@example.com"},
		{"MARÍA", "maría"},
		{"", ""},
		{"  ", ""},
	}
	for _, tc := range cases {
		if got := ParseInputString(tc.in); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ana   María  López", "Ana María López"},
		{"  Luis ", "Luis"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CollapseSpaces(tc.in); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}
