package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/registry"
)

var languageNames = map[domain.Language]string{
	domain.LanguageHindi:   "हिन्दी (Hindi)",
	domain.LanguageEnglish: "English",
}

func (m Model) View() string {
	var body string
	if m.snap.Language == "" {
		body = m.viewPicker()
	} else {
		body = m.viewDashboard()
	}
	if m.status != "" {
		body += "\n" + blockedStyle.Render(m.status)
	}
	return appStyle.Render(body + "\n\n" + m.help.View(m.keys))
}

func (m Model) viewPicker() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("StudyLock"))
	b.WriteString("\n\n")
	for i, lang := range domain.Languages {
		cursor := "  "
		name := languageNames[lang]
		if i == m.pickerCursor {
			cursor = cursorStyle.Render("> ")
			name = cursorStyle.Render(name)
		}
		b.WriteString(cursor + name + "\n")
	}
	return b.String()
}

func (m Model) viewDashboard() string {
	strs := m.catalog.For(m.snap.Language)

	tabs := make([]string, 0, len(domain.Tabs))
	for _, tab := range domain.Tabs {
		label := strs.Label(string(tab))
		if tab == m.snap.Tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var content string
	switch m.snap.Tab {
	case domain.TabApps:
		content = m.viewApps(strs)
	case domain.TabAssistant:
		content = m.viewAssistant(strs)
	default:
		content = m.viewOverview(strs)
	}
	return header + "\n\n" + content
}

func (m Model) viewOverview(strs i18n.Strings) string {
	reg, err := m.dash.Registry()
	if err != nil {
		return ""
	}
	focus := reg.TotalUsageMinutes()
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render(mutedStyle.Render(strs.Label("focus_time"))+"\n"+fmt.Sprintf("%dh %dm", focus/60, focus%60)),
		cardStyle.Render(mutedStyle.Render(strs.Label("apps_blocked"))+"\n"+fmt.Sprintf("%d", reg.BlockedCount())),
	)

	var trend strings.Builder
	trend.WriteString(titleStyle.Render(strs.Label("usage_trends")) + "\n")
	for _, p := range registry.UsageTrend() {
		trend.WriteString(fmt.Sprintf("%s %s %d\n", p.Label, strings.Repeat("█", p.Minutes/5), p.Minutes))
	}

	var top strings.Builder
	top.WriteString(titleStyle.Render(strs.Label("top_distractions")) + "\n")
	for i, app := range reg.TopDistractions(3) {
		top.WriteString(fmt.Sprintf("%d. %s  %dm\n", i+1, app.Name, app.UsageMinutes))
	}

	return strings.Join([]string{
		titleStyle.Render(strs.Label("welcome")),
		cards,
		trend.String(),
		top.String(),
	}, "\n")
}

func (m Model) viewApps(strs i18n.Strings) string {
	var b strings.Builder
	for i, app := range m.snap.Apps {
		cursor := "  "
		if i == m.appCursor {
			cursor = cursorStyle.Render("> ")
		}
		state := allowedStyle.Render(strs.Label("allowed"))
		if app.Blocked {
			state = blockedStyle.Render(strs.Label("blocked"))
		}
		b.WriteString(fmt.Sprintf("%s%-10s %-22s %4dm  %s\n", cursor, app.Name, mutedStyle.Render(string(app.Icon)), app.UsageMinutes, state))
	}
	return b.String()
}

func (m Model) viewAssistant(strs i18n.Strings) string {
	var b strings.Builder
	b.WriteString(m.chat.View())
	b.WriteString("\n")
	if m.snap.Pending {
		b.WriteString(m.spinner.View() + " " + mutedStyle.Render(strs.Label("thinking")) + "\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Join(strs.QuickTips, " · ")))
	return b.String()
}

func renderTranscript(turns []domain.ChatTurn, width int) string {
	wrap := lipgloss.NewStyle().Width(max(width, 20))
	var b strings.Builder
	for _, turn := range turns {
		prefix := botStyle.Render("StudyLock: ")
		if turn.Role == domain.RoleUser {
			prefix = userStyle.Render("You: ")
		}
		b.WriteString(wrap.Render(prefix+turn.Text) + "\n")
	}
	return b.String()
}
