package normalize

import (
	"slices"
	"testing"
)

func TestLogin_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"identity", "alice", "alice"},
		{"case fold", "Alice", "alice"},
		{"fullwidth", "ａｌｉｃｅ", "alice"},
		{"zero width", "al\u200bice", "alice"},
		{"controls and padding", " \x00alice\x7f ", "alice"},
		{"invalid utf8", string([]byte{'a', 0xff, 'l', 'i', 'c', 'e'}), "alice"},
		{"bot suffix", "Dependabot[bot]", "dependabot[bot]"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Login(tc.in); got != tc.out {
				t.Fatalf("Login(%q)=%q want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestLabels_FoldAndDedupe(t *testing.T) {
	got := Labels([]string{"Bug", " bug ", "", "Good  First\tIssue", "ＦＥＡＴＵＲＥ"})
	want := []string{"bug", "good first issue", "feature"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
	if Labels(nil) != nil {
		t.Fatalf("nil in should be nil out")
	}
}

func TestTitle_KeepsCase(t *testing.T) {
	if got := Title("  Fix\tthe\n\nParser\x00 "); got != "Fix the Parser" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitize_FastPath(t *testing.T) {
	s := "plain ascii\nwith newline"
	if got := Sanitize(s); got != s {
		t.Fatalf("got %q", got)
	}
	if got := Sanitize("a\u0085b"); got != "ab" {
		t.Fatalf("c1 control kept: %q", got)
	}
}

func TestSanitize_Drops(t *testing.T) {
	cases := map[string]string{
		"nul\x00byte": "nulbyte",
		"del\x7f":     "del",
		"bad\xffutf8": "badutf8",
		"bell\a\ttab": "bell\ttab",
		"café ✓":      "café ✓",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q want %q", in, got, want)
		}
	}
}
