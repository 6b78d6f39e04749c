package main

import (
	"context"
	"flag"

	"tfm.run/workflow"
)

func interactiveFlag(fs *flag.FlagSet, p *bool) {
	fs.BoolVar(p, "interactive", false, "")
	fs.BoolVar(p, "i", false, "")
}

func purge(ctx context.Context, args []string) error {
	var o workflow.PurgeOptions
	fs := newFlagSet("purge")
	fs.StringVar(&o.AppID, "app-id", "", "")
	fs.StringVar(&o.GroupID, "beta-group-id", "", "")
	fs.Var(&o.Period, "period", "")
	fs.BoolVar(&o.DryRun, "dry-run", false, "")
	interactiveFlag(fs, &o.Interactive)
	fs.StringVar(&o.OutputPath, "output-path", "", "")
	fs.Var(&o.OutputFormat, "output-format", "")
	fs.Var(&o.Scope, "removal-scope", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return newEnv().Purge(ctx, o)
}

func removeUngrouped(ctx context.Context, args []string) error {
	var o workflow.UngroupedOptions
	fs := newFlagSet("remove-ungrouped")
	fs.StringVar(&o.AppID, "app-id", "", "")
	fs.BoolVar(&o.DryRun, "dry-run", false, "")
	interactiveFlag(fs, &o.Interactive)
	fs.StringVar(&o.OutputPath, "output-path", "", "")
	fs.Var(&o.OutputFormat, "output-format", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return newEnv().RemoveUngrouped(ctx, o)
}
