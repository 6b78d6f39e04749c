package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/slices"
	"tfm.run/clierr"
	"tfm.run/console"
	"tfm.run/report"
	"tfm.run/roster"
	"tfm.run/values"
)

// PurgeOptions are the purge command's flags. Zero values mean the flag was
// not given.
type PurgeOptions struct {
	AppID        string
	GroupID      string
	Period       Window
	DryRun       bool
	Interactive  bool
	OutputPath   string
	OutputFormat report.Format
	Scope        Scope
}

// UngroupedOptions are the remove-ungrouped command's flags.
type UngroupedOptions struct {
	AppID        string
	DryRun       bool
	Interactive  bool
	OutputPath   string
	OutputFormat report.Format
}

// resolvePurge settles the RunContext of a purge. When the app and group
// are both given and prompting was not requested, it asks nothing and
// fills in defaults; otherwise it asks for whatever is missing.
func (e *Env) resolvePurge(ctx context.Context, api API, o PurgeOptions) (RunContext, error) {
	format := values.Coalesce(o.OutputFormat, report.Text)
	if !o.Interactive && o.AppID != "" && o.GroupID != "" {
		return RunContext{
			AppID:        o.AppID,
			GroupID:      o.GroupID,
			Window:       values.Coalesce(o.Period, DefaultWindow),
			Scope:        values.Coalesce(o.Scope, ScopeTestFlight),
			DryRun:       o.DryRun,
			OutputPath:   normalizePath(o.OutputPath),
			OutputFormat: format,
		}, nil
	}

	appID, err := e.chooseApp(ctx, api, o.AppID)
	if err != nil {
		return RunContext{}, err
	}
	groups, err := api.BetaGroupsForApp(ctx, appID)
	if err != nil {
		return RunContext{}, err
	}
	if len(groups) == 0 {
		return RunContext{}, clierr.Invalid("App %s has no beta groups.", appID)
	}
	groupID, err := e.chooseGroup(o.GroupID, groups)
	if err != nil {
		return RunContext{}, err
	}
	window := o.Period
	if window.IsZero() {
		if window, err = e.chooseWindow(); err != nil {
			return RunContext{}, err
		}
	}
	dryRun, err := e.askDryRun(o.DryRun)
	if err != nil {
		return RunContext{}, err
	}
	path, format, err := e.askOutput("inactive", o.OutputPath, format)
	if err != nil {
		return RunContext{}, err
	}
	scope := o.Scope
	if scope == "" {
		if scope, err = e.chooseScope(); err != nil {
			return RunContext{}, err
		}
	}
	return RunContext{
		AppID:                appID,
		GroupID:              groupID,
		Window:               window,
		Scope:                scope,
		DryRun:               dryRun,
		RequiresConfirmation: !dryRun,
		OutputPath:           path,
		OutputFormat:         format,
	}, nil
}

// resolveUngrouped is like resolvePurge for remove-ungrouped.
func (e *Env) resolveUngrouped(ctx context.Context, api API, o UngroupedOptions) (RunContext, error) {
	format := values.Coalesce(o.OutputFormat, report.Text)
	if !o.Interactive && o.AppID != "" {
		return RunContext{
			AppID:        o.AppID,
			DryRun:       o.DryRun,
			OutputPath:   normalizePath(o.OutputPath),
			OutputFormat: format,
		}, nil
	}

	appID, err := e.chooseApp(ctx, api, o.AppID)
	if err != nil {
		return RunContext{}, err
	}
	dryRun, err := e.askDryRun(o.DryRun)
	if err != nil {
		return RunContext{}, err
	}
	path, format, err := e.askOutput("ungrouped", o.OutputPath, format)
	if err != nil {
		return RunContext{}, err
	}
	return RunContext{
		AppID:                appID,
		DryRun:               dryRun,
		RequiresConfirmation: !dryRun,
		OutputPath:           path,
		OutputFormat:         format,
	}, nil
}

func (e *Env) chooseApp(ctx context.Context, api API, current string) (string, error) {
	apps, err := api.Apps(ctx)
	if err != nil {
		return "", err
	}
	if len(apps) == 0 {
		return "", clierr.Invalid("No apps accessible with the current credentials.")
	}
	if current != "" {
		if slices.IndexFunc(apps, func(a roster.App) bool { return a.ID == current }) >= 0 {
			return current, nil
		}
		e.Console.Print(fmt.Sprintf("App %s is not accessible with the current credentials.", current))
	} else if len(apps) == 1 {
		return apps[0].ID, nil
	}

	m := console.Menu{Title: "Select an app:"}
	for _, a := range apps {
		var details []string
		if a.BundleID != "" {
			details = append(details, a.BundleID)
		}
		m.Items = append(m.Items, console.Item{
			Name:    a.Name,
			Details: append(details, "id: "+a.ID),
		})
	}
	i, err := m.Choose(e.Console, e.Theme)
	if err != nil {
		return "", err
	}
	return apps[i].ID, nil
}

func (e *Env) chooseGroup(current string, groups []roster.Group) (string, error) {
	if current != "" {
		if slices.IndexFunc(groups, func(g roster.Group) bool { return g.ID == current }) >= 0 {
			return current, nil
		}
		e.Console.Print(fmt.Sprintf("Beta group %s does not belong to the selected app.", current))
	} else if len(groups) == 1 {
		return groups[0].ID, nil
	}

	m := console.Menu{Title: "Select a beta group:"}
	for _, g := range groups {
		details := []string{"id: " + g.ID}
		if g.PublicLink != "" {
			details = append(details, g.PublicLink)
		}
		if g.PublicLinkID != "" {
			details = append(details, "link-id: "+g.PublicLinkID)
		}
		m.Items = append(m.Items, console.Item{Name: g.Name, Details: details})
	}
	i, err := m.Choose(e.Console, e.Theme)
	if err != nil {
		return "", err
	}
	return groups[i].ID, nil
}

func (e *Env) chooseWindow() (Window, error) {
	m := console.Menu{Title: "Select inactivity window:"}
	for _, w := range Windows {
		m.Items = append(m.Items, console.Item{Name: w.Label})
	}
	i, err := m.Choose(e.Console, e.Theme)
	if err != nil {
		return Window{}, err
	}
	return Windows[i], nil
}

func (e *Env) chooseScope() (Scope, error) {
	m := console.Menu{Title: "Select removal scope:", Default: 1}
	for _, s := range Scopes {
		m.Items = append(m.Items, console.Item{Name: s.Label()})
	}
	i, err := m.Choose(e.Console, e.Theme)
	if err != nil {
		return "", err
	}
	return Scopes[i], nil
}

func (e *Env) askDryRun(given bool) (bool, error) {
	if given {
		return true, nil
	}
	return console.YesNo(e.Console, "Dry run? (Y/n): ", true)
}

// askOutput returns where to write the report. A path given on the command
// line wins; otherwise the operator is asked whether to write a file and, if
// so, for its path and format.
func (e *Env) askOutput(kind, path string, format report.Format) (string, report.Format, error) {
	if p := normalizePath(path); p != "" {
		return p, format, nil
	}
	ok, err := console.YesNo(e.Console, fmt.Sprintf("Write %s testers to a file? (y/N): ", kind), false)
	if err != nil || !ok {
		return "", format, err
	}
	path, err = console.Line(e.Console, "Enter output file path: ", "Output path cannot be empty.")
	if err != nil {
		return "", format, err
	}
	for {
		s, err := e.Console.Prompt(fmt.Sprintf("Output format (text/csv) [%s]: ", string(format)))
		if err != nil && !errors.Is(err, io.EOF) {
			return "", format, err
		}
		if s == "" {
			break
		}
		f, err := report.ParseFormat(s)
		if err != nil {
			e.Console.Print("Invalid format. Enter 'text' or 'csv'.")
			continue
		}
		format = f
		break
	}
	return normalizePath(path), format, nil
}
