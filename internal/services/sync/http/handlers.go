// Package http provides http transport for sync control
package http

import (
	stdhttp "net/http"
	"strings"
	"time"

	"scorekeeper/internal/modkit/httpkit"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/services/sync/domain"
)

// Register mounts sync endpoints on the given router
func Register(r httpkit.Router, s domain.RunnerPort) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.StartInput](r, "/start", h.start)
	httpkit.Post(r, "/stop", h.stop)
	httpkit.Get(r, "/status", h.status)
	httpkit.Post(r, "/incremental", h.incremental)
	httpkit.PostJSON[domain.RecountInput](r, "/recount", h.recount)
}

type handlers struct{ svc domain.RunnerPort }

// swagger:route POST /sync/start Sync syncStart
// @Summary Start a backfill over a date range
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body domain.StartInput true "Window, dates or RFC3339, end defaults to now"
// @Success 202 {object} domain.Result "started"
// @Success 200 {object} domain.Result "refused"
// @Router /sync/start [post]
func (h *handlers) start(r *stdhttp.Request, in domain.StartInput) (any, error) {
	start, err := ParseBound(in.Start, false)
	if err != nil {
		return nil, err
	}
	end, err := ParseBound(in.End, true)
	if err != nil {
		return nil, err
	}
	return accepted(h.svc.StartSync(r.Context(), start, end))
}

// swagger:route POST /sync/stop Sync syncStop
// @Summary Request a cooperative stop after the current item
// @Tags Sync
// @Produce json
// @Success 200 {object} domain.Result "ok"
// @Router /sync/stop [post]
func (h *handlers) stop(_ *stdhttp.Request) (any, error) {
	return h.svc.StopSync(), nil
}

// swagger:route GET /sync/status Sync syncStatus
// @Summary Current or last run state
// @Tags Sync
// @Produce json
// @Success 200 {object} domain.RunState "ok"
// @Router /sync/status [get]
func (h *handlers) status(_ *stdhttp.Request) (any, error) {
	return h.svc.Status(), nil
}

// swagger:route POST /sync/incremental Sync syncIncremental
// @Summary Start a run from the stored watermark to now
// @Tags Sync
// @Produce json
// @Success 202 {object} domain.Result "started"
// @Success 200 {object} domain.Result "refused"
// @Router /sync/incremental [post]
func (h *handlers) incremental(r *stdhttp.Request) (any, error) {
	return accepted(h.svc.StartIncremental(r.Context()))
}

// swagger:route POST /sync/recount Sync syncRecount
// @Summary Reprocess one item and its reviews
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body domain.RecountInput true "Item number"
// @Success 202 {object} domain.Result "started"
// @Success 200 {object} domain.Result "refused"
// @Router /sync/recount [post]
func (h *handlers) recount(r *stdhttp.Request, in domain.RecountInput) (any, error) {
	return accepted(h.svc.StartRecount(r.Context(), in.Number))
}

// accepted answers 202 when a run was started; a refusal stays 200 with success false
func accepted(res domain.Result, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if res.Success {
		return httpkit.Accepted(res), nil
	}
	return res, nil
}

// ParseBound reads a date (2006-01-02) or RFC3339 instant in UTC
// a bare end date covers the whole day; empty yields the zero time
func ParseBound(s string, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, perr.InvalidArgf("invalid date %q, want YYYY-MM-DD or RFC3339", s)
	}
	if end {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
