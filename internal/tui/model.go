// Package tui is the terminal rendition of the StudyLock dashboard.
package tui

import (
	"context"
	"errors"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/registry"
	"github.com/studylock/studylock/internal/session"
)

// Dashboard is the session surface the terminal client drives.
type Dashboard interface {
	SelectLanguage(lang domain.Language) error
	Logout()
	SetTab(tab domain.Tab) error
	ToggleBlocked(id string) (domain.MonitoredApp, error)
	SetIcon(id string, icon domain.IconRef) (domain.MonitoredApp, error)
	Ask(ctx context.Context, text string) (*agent.Pending, error)
	Registry() (*registry.Registry, error)
	Strings() (i18n.Strings, error)
	Snapshot() session.Snapshot
}

type replyMsg struct {
	turn domain.ChatTurn
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx     context.Context
	dash    Dashboard
	catalog *i18n.Catalog

	keys    keyMap
	help    help.Model
	input   textinput.Model
	spinner spinner.Model
	chat    viewport.Model

	pickerCursor int
	appCursor    int
	snap         session.Snapshot
	status       string
	width        int
	height       int
}

// New creates the model. A non-empty lang skips the picker.
func New(ctx context.Context, dash Dashboard, catalog *i18n.Catalog, lang domain.Language) Model {
	if catalog == nil {
		catalog = i18n.Default()
	}
	ti := textinput.New()
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		dash:    dash,
		catalog: catalog,
		keys:    defaultKeys(),
		help:    help.New(),
		input:   ti,
		spinner: sp,
		chat:    viewport.New(80, 12),
	}
	if lang != "" {
		if err := dash.SelectLanguage(lang); err != nil {
			m.status = err.Error()
		}
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) refresh() {
	m.snap = m.dash.Snapshot()
	if strs, err := m.dash.Strings(); err == nil {
		m.input.Placeholder = strs.Placeholder
	}
	m.chat.SetContent(renderTranscript(m.snap.Transcript, m.chat.Width))
	m.chat.GotoBottom()
	if m.snap.Tab == domain.TabAssistant {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func waitForReply(p *agent.Pending) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{turn: p.Wait()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.chat.Width = max(msg.Width-6, 20)
		m.chat.Height = max(msg.Height-14, 5)
		m.input.Width = max(msg.Width-8, 20)
		m.refresh()
		return m, nil

	case replyMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.snap.Language == "" {
			return m.updatePicker(msg)
		}
		return m.updateDashboard(msg)
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.pickerCursor < len(domain.Languages)-1 {
			m.pickerCursor++
		}
	case key.Matches(msg, m.keys.Select):
		if err := m.dash.SelectLanguage(domain.Languages[m.pickerCursor]); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
		}
		m.appCursor = 0
		m.refresh()
	case msg.String() == "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Logout):
		m.dash.Logout()
		m.status = ""
		m.input.Reset()
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1), nil
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1), nil
	}

	switch m.snap.Tab {
	case domain.TabApps:
		return m.updateApps(msg)
	case domain.TabAssistant:
		return m.updateAssistant(msg)
	}
	return m, nil
}

func (m Model) switchTab(step int) Model {
	i := slices.Index(domain.Tabs, m.snap.Tab)
	next := domain.Tabs[(i+step+len(domain.Tabs))%len(domain.Tabs)]
	if err := m.dash.SetTab(next); err != nil {
		m.status = err.Error()
	}
	m.refresh()
	return m
}

func (m Model) updateApps(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	apps := m.snap.Apps
	if len(apps) == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.appCursor > 0 {
			m.appCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.appCursor < len(apps)-1 {
			m.appCursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if _, err := m.dash.ToggleBlocked(apps[m.appCursor].ID); err != nil {
			m.status = err.Error()
		}
		m.refresh()
	case key.Matches(msg, m.keys.Icon):
		app := apps[m.appCursor]
		if _, err := m.dash.SetIcon(app.ID, nextIcon(app.Icon)); err != nil {
			m.status = err.Error()
		}
		m.refresh()
	}
	return m, nil
}

func nextIcon(current domain.IconRef) domain.IconRef {
	i := slices.Index(domain.IconPalette, current)
	return domain.IconPalette[(i+1)%len(domain.IconPalette)]
}

func (m Model) updateAssistant(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Select) {
		p, err := m.dash.Ask(m.ctx, m.input.Value())
		switch {
		case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrExchangePending):
			return m, nil
		case err != nil:
			m.status = err.Error()
			return m, nil
		}
		m.input.Reset()
		m.refresh()
		return m, tea.Batch(waitForReply(p), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
