// Package http provides http transport for scoring
package http

import (
	stdhttp "net/http"
	"time"

	"scorekeeper/internal/modkit/httpkit"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/services/scoring/domain"

	"github.com/go-chi/chi/v5"
)

// Register mounts scoring endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}

	// aggregates and unlocks for one actor
	httpkit.Get(r, "/actors/{login}", h.actor)

	// points ledger window
	httpkit.Get(r, "/actors/{login}/points", h.points)

	// drift between aggregates and ledgers
	httpkit.Get(r, "/reconcile", h.reconcile)

	// ledger wins
	httpkit.PostJSON[domain.RebuildInput](r, "/rebuild", h.rebuild)

	httpkit.PostJSON[domain.ResetInput](r, "/reset", h.reset)

	httpkit.PostJSON[domain.ChallengeInput](r, "/challenges", h.challenge)
}

type handlers struct{ svc domain.ServicePort }

// swagger:route GET /scoring/actors/{login} Scoring scoringActor
// @Summary Actor aggregates with unlocks, bills and challenges
// @Tags Scoring
// @Produce json
// @Param login path string true "Actor login"
// @Success 200 {object} domain.ActorView "ok"
// @Router /scoring/actors/{login} [get]
func (h *handlers) actor(r *stdhttp.Request) (any, error) {
	return h.svc.Actor(r.Context(), chi.URLParam(r, "login"))
}

// swagger:route GET /scoring/actors/{login}/points Scoring scoringPoints
// @Summary Points ledger entries in [from, to)
// @Tags Scoring
// @Produce json
// @Param login path string true "Actor login"
// @Param from query string false "RFC3339 start, default 30 days ago"
// @Param to query string false "RFC3339 end, default now"
// @Success 200 {array} domain.PointsEntry "ok"
// @Router /scoring/actors/{login}/points [get]
func (h *handlers) points(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	to, err := parseTime(q.Get("to"), time.Time{})
	if err != nil {
		return nil, err
	}
	end := to
	if end.IsZero() {
		end = time.Now()
	}
	from, err := parseTime(q.Get("from"), end.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	return h.svc.Points(r.Context(), chi.URLParam(r, "login"), from, to)
}

// swagger:route GET /scoring/reconcile Scoring scoringReconcile
// @Summary Drift reports, aggregates are never corrected here
// @Tags Scoring
// @Produce json
// @Param login query string false "Limit to one actor"
// @Success 200 {array} domain.DriftReport "ok"
// @Router /scoring/reconcile [get]
func (h *handlers) reconcile(r *stdhttp.Request) (any, error) {
	out, err := h.svc.Reconcile(r.Context(), r.URL.Query().Get("login"))
	if out == nil && err == nil {
		out = []domain.DriftReport{}
	}
	return out, err
}

// swagger:route POST /scoring/rebuild Scoring scoringRebuild
// @Summary Recompute one actor's aggregates from the ledger
// @Tags Scoring
// @Accept json
// @Produce json
// @Param payload body domain.RebuildInput true "Actor"
// @Success 200 {object} domain.Actor "ok"
// @Router /scoring/rebuild [post]
func (h *handlers) rebuild(r *stdhttp.Request, in domain.RebuildInput) (any, error) {
	return h.svc.Rebuild(r.Context(), in.Login)
}

// swagger:route POST /scoring/reset Scoring scoringReset
// @Summary Delete one actor or everyone with all ledger rows
// @Tags Scoring
// @Accept json
// @Produce json
// @Param payload body domain.ResetInput true "Target"
// @Success 200 {object} domain.ResetResult "ok"
// @Router /scoring/reset [post]
func (h *handlers) reset(r *stdhttp.Request, in domain.ResetInput) (any, error) {
	if in.All {
		if err := h.svc.ResetAll(r.Context()); err != nil {
			return nil, err
		}
		return domain.ResetResult{Success: true, Message: "all actors reset"}, nil
	}
	if err := h.svc.Reset(r.Context(), in.Login); err != nil {
		return nil, err
	}
	return domain.ResetResult{Success: true, Message: "actor " + in.Login + " reset"}, nil
}

// swagger:route POST /scoring/challenges Scoring scoringChallenge
// @Summary Record a challenge completion once
// @Tags Scoring
// @Accept json
// @Produce json
// @Param payload body domain.ChallengeInput true "Completion"
// @Success 200 {object} domain.ApplyResult "ok"
// @Router /scoring/challenges [post]
func (h *handlers) challenge(r *stdhttp.Request, in domain.ChallengeInput) (any, error) {
	return h.svc.CompleteChallenge(r.Context(), in.Login, in.ChallengeID, in.Reward, time.Time{})
}

func parseTime(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, perr.InvalidArgf("invalid time %q, want RFC3339", s)
	}
	return t, nil
}
