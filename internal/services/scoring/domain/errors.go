package domain

import perr "scorekeeper/internal/platform/errors"

var (
	// ErrActorNotFound is returned for unknown logins
	ErrActorNotFound = perr.New(perr.ErrorCodeNotFound, "scoring: actor not found")

	// ErrDrift marks a reconciliation mismatch between aggregates and ledger
	ErrDrift = perr.New(perr.ErrorCodeConflict, "scoring: aggregates drifted from ledger")
)
