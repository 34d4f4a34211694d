package github

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// StatusError carries a non 2xx GitHub reply
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string { return fmt.Sprintf("github status %d", e.Status) }

// StatusOf returns the GitHub status carried by err, 0 when there is none
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// quota is what GitHub reports about the caller's budget on each reply
type quota struct {
	present    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

func readQuota(h http.Header) quota {
	q := quota{
		limit:      num(h.Get("X-RateLimit-Limit")),
		retryAfter: time.Duration(num(h.Get("Retry-After"))) * time.Second,
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		q.present, q.remaining = true, num(v)
	}
	if sec := num(h.Get("X-RateLimit-Reset")); sec > 0 {
		q.reset = time.Unix(int64(sec), 0).UTC()
	}
	return q
}

// exhausted reports a spent primary quota or a secondary limit signalled by Retry-After
func (q quota) exhausted() bool {
	return q.retryAfter > 0 || (q.present && q.remaining <= 0)
}

// wait prefers Retry-After, then the reset instant when the quota is spent
func (q quota) wait(now time.Time) time.Duration {
	switch {
	case q.retryAfter > 0:
		return q.retryAfter
	case q.remaining <= 0 && q.reset.After(now):
		return q.reset.Sub(now)
	}
	return 0
}

func num(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// discard drains a little of the body so the connection can be reused
func discard(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	_ = rc.Close()
}
