package workflow

import (
	"context"
	"fmt"

	"github.com/kr/pretty"
	"tfm.run/report"
	"tfm.run/roster"
)

// RemoveUngrouped removes the testers of an app that belong to none of its
// beta groups.
func (e *Env) RemoveUngrouped(ctx context.Context, o UngroupedOptions) (err error) {
	defer e.handleAPIError(&err)

	api, err := e.connect("removing ungrouped testers")
	if err != nil {
		return err
	}
	rc, err := e.resolveUngrouped(ctx, api, o)
	if err != nil {
		return err
	}
	e.logf("remove-ungrouped: %# v", pretty.Formatter(rc))

	testers, err := api.AppTesters(ctx, rc.AppID)
	if err != nil {
		return err
	}
	if len(testers) == 0 {
		e.Console.Print(fmt.Sprintf("No testers found for app %s.", rc.AppID))
		return nil
	}

	groups, err := api.BetaGroupsForApp(ctx, rc.AppID)
	if err != nil {
		return err
	}
	members := make([][]roster.Tester, 0, len(groups))
	for _, g := range groups {
		tt, err := api.BetaGroupTesters(ctx, g.ID)
		if err != nil {
			return err
		}
		e.logf("remove-ungrouped: group %s (%s) has %d tester(s)", g.ID, g.Name, len(tt))
		members = append(members, tt)
	}

	ungrouped := roster.SortByDisplayName(roster.Ungrouped(testers, members))
	if len(ungrouped) == 0 {
		e.Console.Print(fmt.Sprintf("No ungrouped testers found for app %s.", rc.AppID))
		return nil
	}
	if err := report.Ungrouped(ungrouped).Emit(e.Console, rc.OutputPath, rc.OutputFormat); err != nil {
		return err
	}

	dryRun, err := e.confirmRemoval(rc)
	if err != nil {
		return err
	}
	if dryRun {
		e.printDryRun(
			fmt.Sprintf(" - Total app testers: %d", len(testers)),
			fmt.Sprintf(" - Ungrouped testers: %d", len(ungrouped)),
		)
		return nil
	}

	ids := roster.IDs(ungrouped)
	err = removeInBatches(ctx, e.Console, ids, func(ctx context.Context, batch []string) error {
		return api.RemoveAppTesters(ctx, rc.AppID, batch)
	})
	if err != nil {
		return err
	}
	e.Console.Print(fmt.Sprintf("Removed %d ungrouped tester(s) from app %s.", len(ids), rc.AppID))
	return nil
}
