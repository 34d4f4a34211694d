package testkit

import (
	"strings"
	"testing"
	"time"
)

func TestMustPanic_ReturnsValue(t *testing.T) {
	if got := MustPanic(t, func() { panic("boom") }); got != "boom" {
		t.Fatalf("recovered %v", got)
	}
}

func TestMustContain(t *testing.T) {
	MustContain(t, `{"level":"warn","message":"request done"}`, `"level":"warn"`)
	MustContain(t, strings.Repeat("x", 4096)+"needle", "needle")
}

var clock = time.Now

func TestSwap_RestoresAfterSubtest(t *testing.T) {
	fixed := time.Unix(0, 0)
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &clock, func() time.Time { return fixed })
		if !clock().Equal(fixed) {
			t.Fatal("not swapped")
		}
	})
	if clock().Equal(fixed) {
		t.Fatal("not restored")
	}
}

func TestSerial_Excludes(t *testing.T) {
	var inside, overlap int
	t.Run("group", func(t *testing.T) {
		for range 4 {
			t.Run("member", func(t *testing.T) {
				t.Parallel()
				Serial(t)
				inside++
				if inside > 1 {
					overlap++
				}
				time.Sleep(time.Millisecond)
				inside--
			})
		}
	})
	if overlap != 0 {
		t.Fatalf("%d overlapping members", overlap)
	}
}
