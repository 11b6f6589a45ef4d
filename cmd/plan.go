package cmd

import (
	"fmt"

	"testrig/internal/formatting"
	"testrig/internal/lifecycle"

	"github.com/spf13/cobra"
)

// planView is the structured output of one level's phase plan.
type planView struct {
	Level    string   `json:"level" yaml:"level"`
	Setup    []string `json:"setup" yaml:"setup"`
	Shutdown []string `json:"shutdown" yaml:"shutdown"`
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [level]",
		Short: "Show the lifecycle phases run at each test level",
		Long: `Show the ordered phases a test invocation goes through. Setup phases
run when an invocation starts, shutdown phases when it stops. Without an
argument every level is shown.

Examples:
  testrig plan
  testrig plan e2e
  testrig plan container -o json`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var names []string
			for _, l := range lifecycle.Levels {
				names = append(names, l.String())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runPlan,
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	f, _, err := formatter()
	if err != nil {
		return err
	}

	levels := lifecycle.Levels
	if len(args) == 1 {
		level, err := lifecycle.ParseLevel(args[0])
		if err != nil {
			return err
		}
		levels = []lifecycle.Level{level}
	}

	views := planViews(levels)
	t := formatting.Table{
		Title:   "Phase plans",
		Headers: []string{"LEVEL", "#", "PHASE", "STAGE", "TAG"},
	}
	for i, level := range levels {
		plan := lifecycle.PlanFor(level)
		for n, phase := range plan.Phases() {
			stage := "setup"
			if n >= len(plan.Setup) {
				stage = "shutdown"
			}
			t.Rows = append(t.Rows, []any{views[i].Level, n + 1, phase, stage, phase.Tag()})
		}
	}
	if len(levels) == 1 {
		t.Footer = fmt.Sprintf("%d phases", len(t.Rows))
	}
	return f.Write(cmd.OutOrStdout(), t, views)
}

func planViews(levels []lifecycle.Level) []planView {
	views := make([]planView, 0, len(levels))
	for _, level := range levels {
		plan := lifecycle.PlanFor(level)
		v := planView{Level: level.String()}
		for _, p := range plan.Setup {
			v.Setup = append(v.Setup, p.String())
		}
		for _, p := range plan.Shutdown {
			v.Shutdown = append(v.Shutdown, p.String())
		}
		views = append(views, v)
	}
	return views
}
