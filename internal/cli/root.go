// Package cli implements the studylock command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/config"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/identity"
	"github.com/studylock/studylock/internal/session"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "studylock",
	Short: "Study focus dashboard in the terminal",
	Long: `studylock is the terminal client of the StudyLock dashboard.

Pick a language, review your app usage, block distracting apps and ask the
StudyLock Assistant for study advice. Nothing is saved between runs.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// newGenerator builds the assistant backend from the environment.
var newGenerator = func(ctx context.Context) agent.Generator {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Invalid configuration, assistant disabled", "error", err)
		return agent.UnavailableGenerator{}
	}
	gen, _ := agent.NewDefaultGenerator(ctx, agent.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, slog.Default())
	return gen
}

// newLocalSession returns a standalone dashboard session owned by this process.
func newLocalSession(ctx context.Context) *session.Session {
	return session.New(session.Key{
		UserID:    identity.NewAnonID(),
		SessionID: "cli",
	}, session.Deps{
		Generator: newGenerator(ctx),
		Catalog:   i18n.Default(),
		Logger:    slog.Default(),
	})
}
