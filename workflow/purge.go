package workflow

import (
	"context"
	"fmt"

	"github.com/kr/pretty"
	"golang.org/x/exp/slices"
	"tfm.run/clierr"
	"tfm.run/report"
	"tfm.run/roster"
)

// Purge removes the testers of a beta group that had no sessions during
// the chosen window.
func (e *Env) Purge(ctx context.Context, o PurgeOptions) (err error) {
	defer e.handleAPIError(&err)

	api, err := e.connect("purging testers")
	if err != nil {
		return err
	}
	rc, err := e.resolvePurge(ctx, api, o)
	if err != nil {
		return err
	}
	e.logf("purge: %# v", pretty.Formatter(rc))

	if err := checkOwnership(ctx, api, rc.AppID, rc.GroupID); err != nil {
		return err
	}

	testers, err := api.BetaGroupTesters(ctx, rc.GroupID)
	if err != nil {
		return err
	}
	if len(testers) == 0 {
		e.Console.Print(fmt.Sprintf("No testers found in beta group %s.", rc.GroupID))
		return nil
	}
	usage, err := api.TesterUsage(ctx, rc.GroupID, rc.Window.Period)
	if err != nil {
		return err
	}
	e.logf("purge: usage for %d of %d tester(s)", len(usage), len(testers))

	inactive := roster.SortByDisplayName(roster.Inactive(testers, usage))
	if len(inactive) == 0 {
		e.Console.Print(fmt.Sprintf("No inactive testers found for beta group %s in the last %s.", rc.GroupID, rc.Window.Label))
		return nil
	}
	if err := report.Inactive(inactive, rc.Window.Label).Emit(e.Console, rc.OutputPath, rc.OutputFormat); err != nil {
		return err
	}

	dryRun, err := e.confirmRemoval(rc)
	if err != nil {
		return err
	}
	if dryRun {
		e.printDryRun(
			fmt.Sprintf(" - Total testers: %d", len(testers)),
			fmt.Sprintf(" - Inactive testers: %d", len(inactive)),
		)
		return nil
	}

	ids := roster.IDs(inactive)
	switch rc.Scope {
	case ScopeGroupOnly:
		err = removeInBatches(ctx, e.Console, ids, func(ctx context.Context, batch []string) error {
			return api.RemoveTestersFromGroup(ctx, rc.GroupID, batch)
		})
		if err != nil {
			return err
		}
		e.Console.Print(fmt.Sprintf("Removed %d tester(s) from beta group %s.", len(ids), rc.GroupID))
	default:
		if err := removeInBatches(ctx, e.Console, ids, api.RemoveTesters); err != nil {
			return err
		}
		e.Console.Print(fmt.Sprintf("Removed %d tester(s) from TestFlight.", len(ids)))
	}
	return nil
}

// checkOwnership reports an error unless groupID is a beta group of appID.
// The group's own app relationship is trusted when present; otherwise the
// app's groups are searched.
func checkOwnership(ctx context.Context, api API, appID, groupID string) error {
	g, err := api.BetaGroup(ctx, groupID)
	if err != nil {
		return err
	}
	owned := g.AppID == appID
	if g.AppID == "" {
		groups, err := api.BetaGroupsForApp(ctx, appID)
		if err != nil {
			return err
		}
		owned = slices.IndexFunc(groups, func(x roster.Group) bool { return x.ID == g.ID }) >= 0
	}
	if !owned {
		return clierr.Invalid("Beta group %s does not belong to app %s.", groupID, appID)
	}
	return nil
}

// confirmRemoval reports whether the run must stop short of removing
// anyone, asking the operator first when the run requires it.
func (e *Env) confirmRemoval(rc RunContext) (dryRun bool, err error) {
	if rc.DryRun {
		return true, nil
	}
	if !rc.RequiresConfirmation {
		return false, nil
	}
	ok, err := e.Console.Confirm("Proceed with removal? (y/N): ")
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (e *Env) printDryRun(counts ...string) {
	e.Console.Print("Dry run summary:")
	for _, line := range counts {
		e.Console.Print(line)
	}
	e.Console.Print("Dry run: no testers were removed.")
}
