// Package testkit holds assertions and seam helpers shared by tests
package testkit

import (
	"strings"
	"testing"
)

// MustPanic fails t unless fn panics and returns the recovered value
func MustPanic(t testing.TB, fn func()) (recovered any) {
	t.Helper()
	defer func() {
		recovered = recover()
		if recovered == nil {
			t.Fatalf("expected a panic")
		}
	}()
	fn()
	return nil
}

// MustContain fails t when needle is absent, quoting the tail of haystack
func MustContain(t testing.TB, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		return
	}
	tail := haystack
	if len(tail) > 2048 {
		tail = "..." + tail[len(tail)-2048:]
	}
	t.Fatalf("missing %q in output:\n%s", needle, tail)
}
