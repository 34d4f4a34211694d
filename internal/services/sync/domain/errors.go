package domain

import perr "scorekeeper/internal/platform/errors"

var (
	// ErrAlreadyRunning is returned when the run lock is held
	ErrAlreadyRunning = perr.New(perr.ErrorCodeConflict, "sync: a run is already in progress")
	// ErrNotRunning is returned by stop when nothing runs
	ErrNotRunning = perr.New(perr.ErrorCodeConflict, "sync: no run in progress")
)
