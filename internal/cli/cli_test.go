package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		appsTopN, appsTopFormat, askLang = 3, "table", "english"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func stubGenerator(t *testing.T, gen agent.Generator) {
	t.Helper()
	orig := newGenerator
	newGenerator = func(context.Context) agent.Generator { return gen }
	t.Cleanup(func() { newGenerator = orig })
}

func TestAppsTopTable(t *testing.T) {
	out, err := execute(t, "apps", "top")
	if err != nil {
		t.Fatalf("apps top failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got:\n%s", out)
	}
	for i, name := range []string{"YouTube", "Reddit", "Instagram"} {
		if !strings.Contains(lines[i+1], name) {
			t.Fatalf("row %d = %q, want %s", i+1, lines[i+1], name)
		}
	}
}

func TestAppsTopYAML(t *testing.T) {
	out, err := execute(t, "apps", "top", "-n", "10", "-o", "yaml")
	if err != nil {
		t.Fatalf("apps top failed: %v", err)
	}
	var rows []appRow
	if err := yaml.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, out)
	}
	if len(rows) != 5 || rows[0].ID != "2" || rows[4].ID != "4" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestAppsTopUnknownFormat(t *testing.T) {
	if _, err := execute(t, "apps", "top", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestAskPrintsTranscript(t *testing.T) {
	var got agent.GenerateRequest
	stubGenerator(t, agent.GeneratorFunc(func(_ context.Context, req agent.GenerateRequest) (string, error) {
		got = req
		return "Use the Pomodoro technique.", nil
	}))

	out, err := execute(t, "ask", "--lang", "english", "how", "to", "focus?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if len(got.Turns) != 2 || got.Turns[1].Text != "how to focus?" {
		t.Fatalf("unexpected request turns: %+v", got.Turns)
	}
	if !strings.Contains(out, "You: how to focus?") || !strings.Contains(out, "StudyLock: Use the Pomodoro technique.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestAskFallback(t *testing.T) {
	stubGenerator(t, agent.GeneratorFunc(func(context.Context, agent.GenerateRequest) (string, error) {
		return "", errors.New("unavailable")
	}))

	out, err := execute(t, "ask", "--lang", "hindi", "help")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, i18n.Default().For(domain.LanguageHindi).Fallback) {
		t.Fatalf("expected Hindi fallback, got:\n%s", out)
	}
}

func TestAskRejectsUnknownLanguage(t *testing.T) {
	if _, err := execute(t, "ask", "--lang", "french", "hi"); !errors.Is(err, domain.ErrUnknownLanguage) {
		t.Fatalf("expected ErrUnknownLanguage, got %v", err)
	}
}
