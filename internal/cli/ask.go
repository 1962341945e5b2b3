package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studylock/studylock/internal/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the StudyLock Assistant a single question",
	Long: `Ask the StudyLock Assistant a single question and print the transcript.

Requires GEMINI_API_KEY; without it the assistant answers with its
"trouble connecting" message.

Examples:
  studylock ask --lang english "How do I stay focused?"
  studylock ask --lang hindi "पढ़ाई की योजना बनाओ"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askLang string

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "english", "Display language: hindi, english")
}

func runAsk(cmd *cobra.Command, args []string) error {
	lang, err := domain.ParseLanguage(askLang)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s := newLocalSession(ctx)
	if err := s.SelectLanguage(lang); err != nil {
		return err
	}

	p, err := s.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	p.Wait()

	out := cmd.OutOrStdout()
	for _, turn := range s.Snapshot().Transcript {
		speaker := "StudyLock"
		if turn.Role == domain.RoleUser {
			speaker = "You"
		}
		fmt.Fprintf(out, "%s: %s\n\n", speaker, turn.Text)
	}
	return nil
}
