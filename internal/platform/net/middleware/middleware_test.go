package middleware_test

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/logger"
	pnet "scorekeeper/internal/platform/net"
	"scorekeeper/internal/platform/net/middleware"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	t.Cleanup(logger.Replace(logger.New(logger.Options{Level: "debug", Format: "json", Writer: &buf})))
	return &buf
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("decode %q: %v", l, err)
		}
		out = append(out, m)
	}
	return out
}

func TestAccessLog_CarriesRequestIDAndStatus(t *testing.T) {
	buf := captureLogs(t)
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "ok")
	}), middleware.RequestID(), middleware.LogContext, middleware.AccessLog(0))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/start", nil)
	req.Header.Set("X-Request-ID", "rid-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated || rec.Body.String() != "ok" {
		t.Fatalf("passthrough: %d %q", rec.Code, rec.Body.String())
	}
	got := lines(t, buf)
	if len(got) != 1 {
		t.Fatalf("want one line, got %v", got)
	}
	m := got[0]
	if m["request_id"] != "rid-42" || m["status"] != float64(201) || m["bytes"] != float64(2) || m["level"] != "info" {
		t.Fatalf("fields: %v", m)
	}
}

func TestAccessLog_Levels(t *testing.T) {
	cases := []struct {
		name   string
		slow   time.Duration
		path   string
		status int
		sleep  time.Duration
		level  string
	}{
		{"server error", 0, "/x", http.StatusInternalServerError, 0, "error"},
		{"slow", time.Millisecond, "/x", http.StatusOK, 5 * time.Millisecond, "warn"},
		{"quiet poll", 0, "/api/v1/sync/status", http.StatusOK, 0, "debug"},
		{"quiet poll failing", 0, "/api/v1/sync/status", http.StatusNotFound, 0, "info"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogs(t)
			h := middleware.AccessLog(tc.slow, "/api/v1/sync/status")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(tc.sleep)
				w.WriteHeader(tc.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))
			if got := lines(t, buf); len(got) != 1 || got[0]["level"] != tc.level {
				t.Fatalf("got %v want level %s", got, tc.level)
			}
		})
	}
}

func TestRecoverJSON_WritesEnvelope(t *testing.T) {
	buf := captureLogs(t)
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("ledger exploded")
	}), middleware.RequestID(), middleware.LogContext, middleware.RecoverJSON)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scoring/reconcile", nil)
	req.Header.Set("X-Request-ID", "rid-p")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError || rec.Header().Get("X-Request-ID") != "rid-p" {
		t.Fatalf("status %d headers %v", rec.Code, rec.Header())
	}
	var w pnet.Wire
	if err := json.Unmarshal(rec.Body.Bytes(), &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != perr.ErrorCodePanic || w.RequestID != "rid-p" {
		t.Fatalf("envelope: %+v", w)
	}
	if !strings.Contains(buf.String(), "ledger exploded") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestRecoverJSON_RepanicsAbort(t *testing.T) {
	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Fatal("abort must propagate")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCompress_WhenAccepted(t *testing.T) {
	body := strings.Repeat(`{"actor":"octocat","points":100}`, 200)
	h := middleware.Compress(flate.BestSpeed)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "deflate")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "deflate" {
		t.Fatalf("not compressed: %v", rec.Header())
	}
	out, err := io.ReadAll(flate.NewReader(rec.Body))
	if err != nil || string(out) != body {
		t.Fatalf("round trip: %v", err)
	}
}

func TestCORS_PreflightExposesRequestID(t *testing.T) {
	h := middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"https://dash.example"}})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync/start", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "https://dash.example" {
		t.Fatalf("preflight headers: %v", rec.Header())
	}
}

func TestHeartbeatAndStripSlashes(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	}), middleware.Heartbeat("/health"), middleware.StripSlashes(), middleware.NoCache())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "." {
		t.Fatalf("heartbeat: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/status/", nil))
	if rec.Body.String() != "/api/v1/sync/status" || rec.Header().Get("Cache-Control") == "" {
		t.Fatalf("strip/no-cache: %q %v", rec.Body.String(), rec.Header())
	}
}
