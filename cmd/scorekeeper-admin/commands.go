package main

import (
	"context"
	"io"
	"slices"
	"strconv"
	"time"

	perr "scorekeeper/internal/platform/errors"
	scoring "scorekeeper/internal/services/scoring/domain"
	synchttp "scorekeeper/internal/services/sync/http"

	"github.com/spf13/cobra"
)

var formats = []string{"text", "json"}

// app carries global flags and the environment opener
type app struct {
	out    io.Writer
	format string
	open   func(context.Context) (*env, error)
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scorekeeper-admin",
		Short:         "Sync and scoring maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(formats, a.format) {
				return perr.InvalidArgf("invalid format %q: must be one of %v", a.format, formats)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		newMigrateCommand(a),
		newBackfillCommand(a),
		newIncrementalCommand(a),
		newRecountCommand(a),
		newReconcileCommand(a),
		newRebuildCommand(a),
		newResetCommand(a),
		newStatusCommand(a),
	)
	return cmd
}

// with opens the environment for one command and closes it afterwards
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(ctx, e)
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger and lease schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, e *env) error {
				if err := e.migrate(ctx); err != nil {
					return err
				}
				return a.print(map[string]any{"migrated": true})
			})
		},
	}
}

func newBackfillCommand(a *app) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Ingest every merged pull request in a date range",
		Long: `Backfill counts the merged pull requests in [start, end] and replays them
oldest first through the scoring pipeline. Re-running a range is safe.

Example:
  scorekeeper-admin backfill --start 2025-01-01 --end 2025-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := synchttp.ParseBound(start, false)
			if err != nil {
				return err
			}
			to, err := synchttp.ParseBound(end, true)
			if err != nil {
				return err
			}
			return a.with(cmd, func(ctx context.Context, e *env) error {
				st, err := e.runner.RunSync(ctx, from, to)
				if werr := a.print(st); werr != nil {
					return werr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start, YYYY-MM-DD or RFC3339 (required)")
	cmd.Flags().StringVar(&end, "end", "", "window end, inclusive; defaults to now")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newIncrementalCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "incremental",
		Short: "Sync from the watermark to now and advance it on success",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, e *env) error {
				st, err := e.runner.RunIncremental(ctx)
				if werr := a.print(st); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}

func newRecountCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recount <number>",
		Short: "Run one pull request and its reviews through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return perr.InvalidArgf("invalid pull request number %q", args[0])
			}
			return a.with(cmd, func(ctx context.Context, e *env) error {
				st, err := e.runner.RecountItem(ctx, n)
				if werr := a.print(st); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}

func newReconcileCommand(a *app) *cobra.Command {
	var login string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare aggregates with the ledger, exits non zero on drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, e *env) error {
				drift, err := e.scoring.Reconcile(ctx, login)
				if err != nil {
					return err
				}
				if drift == nil {
					drift = []scoring.DriftReport{}
				}
				if err := a.print(drift); err != nil {
					return err
				}
				if len(drift) > 0 {
					return perr.Wrapf(scoring.ErrDrift, perr.ErrorCodeConflict, "%d actors drifted", len(drift))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "limit to one actor")
	return cmd
}

func newRebuildCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <login>",
		Short: "Recompute an actor's aggregates from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, e *env) error {
				actor, err := e.scoring.Rebuild(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(actor)
			})
		},
	}
}

func newResetCommand(a *app) *cobra.Command {
	var all, yes bool
	cmd := &cobra.Command{
		Use:   "reset [login]",
		Short: "Delete an actor's ledger and aggregates, or everyone's with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return perr.InvalidArgf("pass exactly one of a login or --all")
			}
			if !yes {
				return perr.InvalidArgf("reset is destructive, confirm with --yes")
			}
			return a.with(cmd, func(ctx context.Context, e *env) error {
				res := scoring.ResetResult{Success: true, Message: "all actors reset"}
				if all {
					if err := e.scoring.ResetAll(ctx); err != nil {
						return err
					}
				} else {
					if err := e.scoring.Reset(ctx, args[0]); err != nil {
						return err
					}
					res.Message = "actor " + args[0] + " reset"
				}
				return a.print(res)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reset every actor; the sync watermark is kept")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

// statusView is what status prints
type statusView struct {
	Watermark *time.Time         `json:"watermark"`
	Actor     *scoring.ActorView `json:"actor,omitempty"`
}

func newStatusCommand(a *app) *cobra.Command {
	var login string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the incremental watermark and optionally one actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, e *env) error {
				var v statusView
				wm, ok, err := e.scoring.Watermark(ctx)
				if err != nil {
					return err
				}
				if ok {
					v.Watermark = &wm
				}
				if login != "" {
					av, err := e.scoring.Actor(ctx, login)
					if err != nil {
						return err
					}
					v.Actor = &av
				}
				return a.print(v)
			})
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "include this actor's aggregates")
	return cmd
}
