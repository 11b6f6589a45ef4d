package cmd

import (
	"runtime"
	"strings"

	"testrig/internal/formatting"
	"testrig/internal/lifecycle"

	"github.com/spf13/cobra"
)

// versionView is the structured output of the version command.
type versionView struct {
	Version  string   `json:"version" yaml:"version"`
	Go       string   `json:"go" yaml:"go"`
	Platform string   `json:"platform" yaml:"platform"`
	Levels   []string `json:"levels" yaml:"levels"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of testrig and the test levels it supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := formatter()
			if err != nil {
				return err
			}
			v := currentVersion()
			t := formatting.Table{
				Title:   "testrig",
				Headers: []string{"KEY", "VALUE"},
				Rows: [][]any{
					{"version", v.Version},
					{"go", v.Go},
					{"platform", v.Platform},
					{"levels", strings.Join(v.Levels, ", ")},
				},
			}
			return f.Write(cmd.OutOrStdout(), t, v)
		},
	}
}

func currentVersion() versionView {
	v := versionView{
		Version:  rootCmd.Version,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if v.Version == "" {
		v.Version = "dev"
	}
	for _, l := range lifecycle.Levels {
		v.Levels = append(v.Levels, l.String())
	}
	return v
}
