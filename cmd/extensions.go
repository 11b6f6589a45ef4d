package cmd

import (
	"fmt"
	"strings"

	"testrig/internal/catalog"
	"testrig/internal/config"
	"testrig/internal/extension"
	"testrig/internal/formatting"
	"testrig/internal/lifecycle"
	"testrig/internal/selftest"

	"github.com/spf13/cobra"
)

var (
	extensionsLevel      string
	extensionsCapability string
)

// extensionView is the structured output of one registry entry.
type extensionView struct {
	Capability string   `json:"capability" yaml:"capability"`
	Name       string   `json:"name" yaml:"name"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func newExtensionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extensions",
		Aliases: []string{"ext"},
		Short:   "List the extensions of the default catalog",
		Long: `List every verifier, reifier, inspector, adapter and provider registered
in the default catalog, together with the level and phase tags that decide
when each one takes part.

Examples:
  testrig extensions
  testrig extensions --level e2e
  testrig extensions --capability reifier -o yaml`,
		Args: cobra.NoArgs,
		RunE: runExtensions,
	}
	cmd.Flags().StringVar(&extensionsLevel, "level", "", "Only show extensions tagged for this level")
	cmd.Flags().StringVar(&extensionsCapability, "capability", "", "Only show capabilities whose name contains this text")
	return cmd
}

// buildCatalog assembles the default catalog plus the self-test domain.
func buildCatalog(cfg config.RigConfig) (*catalog.Catalog, error) {
	return catalog.New(cfg, selftest.Options()...)
}

func runExtensions(cmd *cobra.Command, args []string) error {
	f, _, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	var levelTag extension.Tag
	if extensionsLevel != "" {
		level, err := lifecycle.ParseLevel(extensionsLevel)
		if err != nil {
			return err
		}
		levelTag = level.Tag()
	}

	views := filterExtensions(cat.Registry().Entries(), levelTag, extensionsCapability)
	t := formatting.Table{
		Title:   "Extensions",
		Headers: []string{"CAPABILITY", "NAME", "TAGS"},
		Footer:  fmt.Sprintf("%d extensions", len(views)),
	}
	for _, v := range views {
		t.Rows = append(t.Rows, []any{v.Capability, v.Name, strings.Join(v.Tags, " ")})
	}
	return f.Write(cmd.OutOrStdout(), t, views)
}

// filterExtensions keeps entries carrying levelTag (when set) whose
// capability name contains capability, case-insensitively.
func filterExtensions(entries []extension.Entry, levelTag extension.Tag, capability string) []extensionView {
	capability = strings.ToLower(capability)
	views := make([]extensionView, 0, len(entries))
	for _, e := range entries {
		if levelTag != "" && !e.HasTags(levelTag) {
			continue
		}
		name := e.Capability.String()
		if capability != "" && !strings.Contains(strings.ToLower(name), capability) {
			continue
		}
		v := extensionView{Capability: name, Name: e.Name}
		for _, tag := range e.Tags {
			v.Tags = append(v.Tags, string(tag))
		}
		views = append(views, v)
	}
	return views
}
