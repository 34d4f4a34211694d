package testkit

import (
	"sync"
	"testing"
)

var serial sync.Mutex

// Swap replaces *target for the rest of the test
func Swap[T any](t testing.TB, target *T, replacement T) {
	t.Helper()
	prev := *target
	*target = replacement
	t.Cleanup(func() { *target = prev })
}

// Serial holds a process wide lock until the test ends, for tests touching package globals
func Serial(t testing.TB) {
	t.Helper()
	serial.Lock()
	t.Cleanup(serial.Unlock)
}
