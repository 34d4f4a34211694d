package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LOG_LEVEL", "  debug ")
	t.Setenv("LOG_FORMAT", "   ")

	rc := New().Prefix("LOG_")
	if got := rc.Get("LEVEL", "info"); got != "debug" {
		t.Fatalf("level %q", got)
	}
	if got := rc.Get("FORMAT", "json"); got != "json" {
		t.Fatalf("blank must fall back, got %q", got)
	}
	if got := rc.Get("MISSING", "x"); got != "x" {
		t.Fatalf("missing %q", got)
	}
	if got := New().Prefix("LOG").Prefix("_").Get("LEVEL", ""); got != "debug" {
		t.Fatalf("nested prefix %q", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "yes": true, "On": true, "0": false, "nope": false}
	for in, want := range cases {
		t.Setenv("SK_FLAG", in)
		if got := New().GetBool("SK_FLAG", !want); got != want {
			t.Fatalf("%q: got %v", in, got)
		}
	}
	t.Setenv("SK_FLAG", "")
	if !New().GetBool("SK_FLAG", true) {
		t.Fatal("unset must use default")
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("SK_N", " 12 ")
	if got := New().GetInt("SK_N", 1); got != 12 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("SK_N", "twelve")
	if got := New().GetInt("SK_N", 1); got != 1 {
		t.Fatalf("bad value must use default, got %d", got)
	}
}
