package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilManager_IsNoop(t *testing.T) {
	var m *Manager
	m.RunFinished("backfill", "completed")
	m.ItemProcessed()
	m.ReviewsProcessed(3)
	m.ItemFailed("reviews")
	m.RateLimit(10)
	m.RateWait()
	m.Duplicate("contribution")
	m.Unlocked("prs")
	m.BillGranted("volume", 1)
	m.Drift(1)
	m.GitHubRequest("2xx")
	m.ObserveEventTx(0.1)
	if m.Registry() != nil {
		t.Fatalf("nil manager should have nil registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestManager_ExposesCounters(t *testing.T) {
	m := New(WithNamespace("test"))
	m.RunFinished("backfill", "completed")
	m.BillGranted("volume", 2)
	m.Unlocked("prs")
	m.RateLimit(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`test_sync_runs_total{kind="backfill",status="completed"} 1`,
		`test_scoring_bills_granted_total{rule="volume"} 2`,
		`test_scoring_unlocks_total{dimension="prs"} 1`,
		`test_sync_rate_limit_remaining 42`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q\n%s", want, body)
		}
	}
}

func TestNew_PrivateRegistries(t *testing.T) {
	// two managers must not collide on registration
	a, b := New(), New()
	if a.Registry() == b.Registry() {
		t.Fatalf("expected distinct registries")
	}
	if Default() != Default() {
		t.Fatalf("Default should be a singleton")
	}
}
