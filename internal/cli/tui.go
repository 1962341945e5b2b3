package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive dashboard",
	Long: `Open the interactive terminal dashboard.

Examples:
  studylock tui                # Start at the language picker
  studylock tui --lang hindi   # Skip the picker`,
	RunE: runTUI,
}

var tuiLang string

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVarP(&tuiLang, "lang", "l", "", "Preselect a language: hindi, english")
}

func runTUI(cmd *cobra.Command, args []string) error {
	var lang domain.Language
	if tuiLang != "" {
		l, err := domain.ParseLanguage(tuiLang)
		if err != nil {
			return err
		}
		lang = l
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	model := tui.New(ctx, newLocalSession(ctx), i18n.Default(), lang)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
