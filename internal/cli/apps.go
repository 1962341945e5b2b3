package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/registry"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Inspect the monitored apps",
}

var appsTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the most distracting apps",
	Long: `Show the monitored apps with the most usage, highest first.

Examples:
  studylock apps top            # Top 3
  studylock apps top -n 5       # All five
  studylock apps top -o yaml    # YAML output`,
	RunE: runAppsTop,
}

var (
	appsTopN      int
	appsTopFormat string
)

func init() {
	rootCmd.AddCommand(appsCmd)
	appsCmd.AddCommand(appsTopCmd)

	appsTopCmd.Flags().IntVarP(&appsTopN, "number", "n", 3, "Number of apps to show")
	appsTopCmd.Flags().StringVarP(&appsTopFormat, "output", "o", "table", "Output format: table, yaml")
}

type appRow struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	UsageMinutes int    `yaml:"usage_minutes"`
	Blocked      bool   `yaml:"blocked"`
}

func runAppsTop(cmd *cobra.Command, args []string) error {
	apps := registry.NewSeeded().TopDistractions(appsTopN)

	switch appsTopFormat {
	case "yaml":
		rows := make([]appRow, 0, len(apps))
		for _, app := range apps {
			rows = append(rows, appRow{ID: app.ID, Name: app.Name, UsageMinutes: app.UsageMinutes, Blocked: app.Blocked})
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "table":
		return printAppTable(cmd, apps)
	default:
		return fmt.Errorf("unknown output format %q", appsTopFormat)
	}
}

func printAppTable(cmd *cobra.Command, apps []domain.MonitoredApp) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAPP\tUSAGE\tSTATUS")
	for i, app := range apps {
		status := "allowed"
		if app.Blocked {
			status = "blocked"
		}
		fmt.Fprintf(w, "%d\t%s\t%dm\t%s\n", i+1, app.Name, app.UsageMinutes, status)
	}
	return w.Flush()
}
