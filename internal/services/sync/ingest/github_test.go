package ingest_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gh "scorekeeper/internal/adapters/ingest/github"
	"scorekeeper/internal/core/rules"
	"scorekeeper/internal/platform/testkit"
	scorerepo "scorekeeper/internal/services/scoring/repo"
	scoresvc "scorekeeper/internal/services/scoring/service"
	"scorekeeper/internal/services/sync/domain"
	"scorekeeper/internal/services/sync/ingest"
	"scorekeeper/internal/services/sync/service"
)

const pullsPage = `[
 {"id":3003,"number":3,"title":"Add cache","user":{"login":"alice"},"labels":[],"merged_at":"2025-03-12T10:00:00Z","updated_at":"2025-03-12T10:00:00Z"},
 {"id":3002,"number":2,"title":"Drop draft","user":{"login":"dave"},"labels":[],"merged_at":null,"updated_at":"2025-03-11T10:00:00Z"},
 {"id":3001,"number":1,"title":"Fix crash","user":{"login":"alice"},"labels":[{"name":"bug"}],"merged_at":"2025-03-11T09:00:00Z","updated_at":"2025-03-11T09:00:00Z"}
]`

func fakeGitHub(t *testing.T, failReviewsOn int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"resources":{"core":{"limit":5000,"remaining":4000,"reset":%d}}}`, time.Now().Add(time.Hour).Unix())
	})
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, pullsPage)
	})
	mux.HandleFunc("/repos/acme/widgets/pulls/{number}/reviews", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("number") {
		case fmt.Sprint(failReviewsOn):
			http.Error(w, "boom", http.StatusInternalServerError)
		case "1":
			fmt.Fprint(w, `[
 {"id":11,"user":{"login":"bob"},"state":"APPROVED","submitted_at":"2025-03-11T08:00:00Z"},
 {"id":12,"user":{"login":"ALICE"},"state":"COMMENTED","submitted_at":"2025-03-11T08:30:00Z"},
 {"id":13,"user":{"login":"carol"},"state":"DISMISSED","submitted_at":"2025-03-11T08:40:00Z"}
]`)
		default:
			fmt.Fprint(w, `[{"id":31,"user":{"login":"carol"},"state":"COMMENTED","submitted_at":null}]`)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newRunner(t *testing.T, baseURL string) (*service.Orchestrator, *scoresvc.Service) {
	t.Helper()
	c := gh.NewClient(gh.Options{
		BaseURL: baseURL, Owner: "acme", Repo: "widgets",
		MaxRetries: 1, RetryBase: time.Millisecond, Timeout: 5 * time.Second,
	})
	sc := scoresvc.New(scorerepo.NewMemory(), rules.NewEngine(), scoresvc.Config{})
	o := service.New(ingest.NewGitHub(c), sc, service.NewLocalLock(), service.Config{})
	t.Cleanup(o.Close)
	return o, sc
}

func TestGitHubSource_RunAgainstREST(t *testing.T) {
	srv := fakeGitHub(t, 0)
	o, sc := newRunner(t, srv.URL)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	st, err := o.RunSync(ctx, start, end)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Status != domain.StatusCompleted || st.TotalItems != 2 || st.NewContributions != 2 || st.ProcessedReviews != 2 {
		t.Fatalf("state %+v", st)
	}
	if st.RateRemaining != 4000 {
		t.Fatalf("rate remaining %d", st.RateRemaining)
	}

	alice, err := sc.Actor(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if alice.Actor.PRCount != 2 || alice.Actor.ReviewCount != 0 {
		t.Fatalf("alice %+v", alice.Actor)
	}
	for _, login := range []string{"bob", "carol"} {
		v, err := sc.Actor(ctx, login)
		if err != nil || v.Actor.ReviewCount != 1 {
			t.Fatalf("%s %+v %v", login, v.Actor, err)
		}
	}
}

func TestGitHubSource_ReviewOutageIsPerItem(t *testing.T) {
	srv := fakeGitHub(t, 3)
	o, _ := newRunner(t, srv.URL)

	st, err := o.RunSync(context.Background(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Status != domain.StatusCompleted || st.FailedItems != 1 || st.ProcessedItems != 2 {
		t.Fatalf("state %+v", st)
	}
}

func TestGitHubSource_RecountMissingItem(t *testing.T) {
	srv := fakeGitHub(t, 0)
	o, _ := newRunner(t, srv.URL)

	_, err := o.RecountItem(context.Background(), 77)
	if err == nil {
		t.Fatal("want error")
	}
	testkit.MustContain(t, strings.ToLower(o.Status().Error), "404")
}

func TestNewGitHub_NilClient(t *testing.T) {
	testkit.MustPanic(t, func() { ingest.NewGitHub(nil) })
}
