package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	perr "scorekeeper/internal/platform/errors"
)

type countObs struct{ byClass map[string]int }

func (o *countObs) GitHubRequest(class string) { o.byClass[class]++ }

func newTestClient(t *testing.T, h http.Handler) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, Owner: "acme", Repo: "widgets", TokensCSV: "a, b", MaxRetries: 2, RetryBase: time.Millisecond})
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestListClosedPulls_QueryAndDecode(t *testing.T) {
	var gotQuery, gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/pulls" {
			t.Errorf("path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		fmt.Fprint(w, `[{"number":7,"title":"Fix it","user":{"login":"alice"},"labels":[{"name":"bug"}],"merged_at":"2024-01-02T03:04:05Z","updated_at":"2024-01-02T03:04:05Z"}]`)
	}))

	prs, err := c.ListClosedPulls(context.Background(), 2, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "direction=desc&page=2&per_page=50&sort=updated&state=closed" {
		t.Fatalf("query %q", gotQuery)
	}
	if gotAuth == "" {
		t.Fatalf("expected token header")
	}
	if len(prs) != 1 || prs[0].Number != 7 || prs[0].User.Login != "alice" || !prs[0].Merged() {
		t.Fatalf("decoded %+v", prs)
	}
	if got := prs[0].LabelNames(); len(got) != 1 || got[0] != "bug" {
		t.Fatalf("labels %v", got)
	}
	rl, ok := c.LastRate()
	if !ok || rl.Remaining != 4999 || rl.Limit != 5000 || rl.Reset.Unix() != 1700000000 {
		t.Fatalf("last rate %+v %v", rl, ok)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	obs := &countObs{byClass: map[string]int{}}
	c, slept := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"id":1,"number":3}`)
	}))
	c.opts.Observer = obs

	pr, err := c.GetPull(context.Background(), 3)
	if err != nil || pr.Number != 3 {
		t.Fatalf("get: %+v %v", pr, err)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Millisecond {
		t.Fatalf("slept %v", *slept)
	}
	if obs.byClass["5xx"] != 1 || obs.byClass["2xx"] != 1 {
		t.Fatalf("observer %v", obs.byClass)
	}
}

func TestDo_RateLimitedWaitsForReset(t *testing.T) {
	var calls atomic.Int32
	reset := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	c, slept := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	c.now = func() time.Time { return reset.Add(-30 * time.Second) }

	if _, err := c.ListReviews(context.Background(), 1); err != nil {
		t.Fatalf("reviews: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 30*time.Second {
		t.Fatalf("slept %v", *slept)
	}
}

func TestDo_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   perr.ErrorCode
	}{
		{http.StatusNotFound, perr.ErrorCodeNotFound},
		{http.StatusUnauthorized, perr.ErrorCodeUnauthorized},
		{http.StatusForbidden, perr.ErrorCodeForbidden},
		{http.StatusUnprocessableEntity, perr.ErrorCodeUnknown},
		{http.StatusServiceUnavailable, perr.ErrorCodeUnavailable},
	}
	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.status), func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			_, err := c.GetPull(context.Background(), 1)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := perr.CodeOf(err); got != tc.code {
				t.Fatalf("code %v want %v (%v)", got, tc.code, err)
			}
			if StatusOf(err) != tc.status {
				t.Fatalf("status %d", StatusOf(err))
			}
		})
	}
}

func TestListReviews_Pages(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "1" {
			fmt.Fprint(w, "[")
			for i := 1; i <= 100; i++ {
				if i > 1 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"id":%d,"state":"APPROVED","user":{"login":"bob"}}`, i)
			}
			fmt.Fprint(w, "]")
			return
		}
		fmt.Fprint(w, `[{"id":101,"state":"COMMENTED","user":{"login":"carol"}}]`)
	}))
	rs, err := c.ListReviews(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 101 || rs[100].User.Login != "carol" {
		t.Fatalf("got %d reviews", len(rs))
	}
}

func TestRateLimit_Endpoint(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			t.Errorf("path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"resources":{"core":{"limit":5000,"remaining":42,"reset":1700000000}}}`)
	}))
	rl, err := c.RateLimit(context.Background())
	if err != nil || rl.Remaining != 42 || rl.Limit != 5000 || rl.Reset.Unix() != 1700000000 {
		t.Fatalf("got %+v %v", rl, err)
	}
}

func TestQuotaWait(t *testing.T) {
	now := time.Unix(1000, 0)
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "10")
	h.Set("Retry-After", "7")
	if q := readQuota(h); !q.exhausted() || q.wait(now) != 7*time.Second {
		t.Fatalf("retry-after %+v", q)
	}

	h = http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Minute).Unix(), 10))
	if q := readQuota(h); !q.exhausted() || q.wait(now) != time.Minute {
		t.Fatalf("reset %+v", q)
	}
	if q := readQuota(h); q.wait(now.Add(2*time.Minute)) != 0 {
		t.Fatal("past reset must not wait")
	}

	if q := readQuota(http.Header{}); q.present || q.exhausted() {
		t.Fatalf("no headers %+v", q)
	}
}

func TestBackoffCaps(t *testing.T) {
	c := NewClient(Options{RetryBase: time.Second})
	if c.backoff(0) != time.Second || c.backoff(3) != 8*time.Second {
		t.Fatalf("backoff growth")
	}
	if c.backoff(10) != maxBackoff || c.backoff(80) != maxBackoff {
		t.Fatalf("backoff cap")
	}
}
