package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	scoring "scorekeeper/internal/services/scoring/domain"
	syncdomain "scorekeeper/internal/services/sync/domain"
)

// print renders v in the selected format
func (a *app) print(v any) error {
	if a.format == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	switch x := v.(type) {
	case syncdomain.RunState:
		row(tw, "run", x.RunID)
		row(tw, "kind", string(x.Kind))
		row(tw, "status", string(x.Status))
		if x.Window != nil {
			row(tw, "window", x.Window.Start.Format(time.RFC3339)+" .. "+x.Window.End.Format(time.RFC3339))
		}
		row(tw, "items", fmt.Sprintf("%d/%d", x.ProcessedItems, x.TotalItems))
		row(tw, "new contributions", fmt.Sprint(x.NewContributions))
		row(tw, "reviews", fmt.Sprint(x.ProcessedReviews))
		row(tw, "failed", fmt.Sprint(x.FailedItems))
		row(tw, "rate remaining", fmt.Sprint(x.RateRemaining))
		row(tw, "message", x.Message)
		if x.Error != "" {
			row(tw, "error", x.Error)
		}
	case []scoring.DriftReport:
		if len(x) == 0 {
			fmt.Fprintln(tw, "no drift")
			break
		}
		fmt.Fprintln(tw, "ACTOR\tPRS\tLEDGER\tREVIEWS\tLEDGER\tPOINTS\tENTRIES")
		for _, d := range x {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				d.Actor, d.PRCount, d.Contributions, d.ReviewCount, d.Reviews, d.TotalPoints, d.PointsSum)
		}
	case scoring.Actor:
		actorRows(tw, x)
	case statusView:
		if x.Watermark != nil {
			row(tw, "watermark", x.Watermark.Format(time.RFC3339))
		} else {
			row(tw, "watermark", "unset")
		}
		if x.Actor != nil {
			actorRows(tw, x.Actor.Actor)
			ids := make([]string, 0, len(x.Actor.Unlocks))
			for _, u := range x.Actor.Unlocks {
				ids = append(ids, u.ID)
			}
			row(tw, "unlocks", strings.Join(ids, ", "))
		}
	case scoring.ResetResult:
		fmt.Fprintln(tw, x.Message)
	default:
		fmt.Fprintf(tw, "%+v\n", v)
	}
	return tw.Flush()
}

func row(tw *tabwriter.Writer, k, v string) { fmt.Fprintf(tw, "%s\t%s\n", k, v) }

func actorRows(tw *tabwriter.Writer, a scoring.Actor) {
	row(tw, "actor", a.Login)
	row(tw, "prs", fmt.Sprint(a.PRCount))
	row(tw, "reviews", fmt.Sprint(a.ReviewCount))
	row(tw, "points", fmt.Sprint(a.TotalPoints))
	row(tw, "streak", fmt.Sprintf("%d (longest %d)", a.CurrentStreak, a.LongestStreak))
	row(tw, "bills", fmt.Sprint(a.TotalBillsAwarded))
}
