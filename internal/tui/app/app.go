// Package app is the Bubble Tea menu: it hosts the session coordinator,
// advances frames and renders the coordinator's messages.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/coordinator"
	"github.com/AlbertWijaya1/MultiPlayer/internal/frame"
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/AlbertWijaya1/MultiPlayer/internal/tui/theme"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxListedResults = 8

type Options struct {
	// MatchType is what "join" looks for.
	MatchType string
	// Settings are advertised by "host".
	Settings      session.Settings
	FrameInterval time.Duration
}

// frameMsg advances the game one frame.
type frameMsg time.Time

// Model is the root Bubble Tea model.
type Model struct {
	coord *coordinator.Coordinator
	game  *Game
	queue *frame.Queue
	opts  Options

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	slots   *slotBars
	width   int
	height  int
	frames  int

	showHelp bool
	helpView string
}

// New creates the root model. coord must have been built with game as its
// host and queue as its poster.
func New(coord *coordinator.Coordinator, game *Game, queue *frame.Queue, opts Options) Model {
	if opts.FrameInterval == 0 {
		opts.FrameInterval = time.Second / 30
	}
	if opts.MatchType == "" {
		opts.MatchType = "FreeForAll"
	}
	return Model{
		coord:   coord,
		game:    game,
		queue:   queue,
		opts:    opts,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		slots:   newSlotBars(opts.FrameInterval),
	}
}

// Init starts the frame clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.nextFrame(), m.spinner.Tick)
}

func (m Model) nextFrame() tea.Cmd {
	return tea.Tick(m.opts.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		m.queue.Drain()
		m.slots.step(m.coord.Results())
		m.frames++
		return m, m.nextFrame()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Host):
		m.coord.CreateSession(m.opts.Settings)
		return m, nil

	case key.Matches(msg, m.keys.Join):
		m.coord.FindSessions(m.opts.MatchType)
		return m, nil

	case key.Matches(msg, m.keys.Leave):
		m.coord.DestroySession()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		if m.showHelp {
			view, err := renderHelp(m.opts.MatchType, m.width)
			if err != nil {
				view = m.help.FullHelpView(m.keys.FullHelp())
			}
			m.helpView = view
		}
		return m, nil
	}

	return m, nil
}

// View renders the menu.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, m.helpView, m.help.View(m.keys))
	}

	sections := []string{
		m.renderStatus(),
		m.renderResults(),
		m.renderMessages(),
		m.help.View(m.keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatus() string {
	state := m.coord.State().String()
	glyph := theme.StateGlyph(state)
	if m.coord.State().Pending() {
		glyph = m.spinner.View()
	}
	stateStr := lipgloss.NewStyle().Foreground(theme.StateColor(state)).Render(glyph + " " + state)

	_, name, _ := m.game.LocalPlayer()
	parts := []string{theme.StyleHeader.Render(name), stateStr}
	if mp := m.game.Map(); mp != "" {
		parts = append(parts, theme.StyleDimmed.Render("map "+mp))
	}
	if addr := m.game.ListenAddr(); addr != "" {
		parts = append(parts, theme.StyleDimmed.Render(fmt.Sprintf("listening on %s (%d joined)", addr, m.game.Guests())))
	}
	if m.coord.State() == coordinator.Connected && !m.game.LinkUp() {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render("host link down"))
	}
	return theme.StyleBorder.Render(strings.Join(parts, "  "))
}

func (m Model) renderResults() string {
	results := m.coord.Results()
	if len(results) == 0 {
		return theme.StyleDimmed.Render("  No sessions found yet")
	}

	lines := []string{theme.StyleHeader.Render("Sessions")}
	for i, r := range results {
		if i == maxListedResults {
			lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("  ... %d more", len(results)-i)))
			break
		}
		lines = append(lines, fmt.Sprintf("  %-12s %-14s %s %d open  %dms",
			truncate(r.OwningUserName, 12), truncate(r.MatchType(), 14),
			m.slots.render(r.SessionID), r.OpenPublicConnections, r.PingMs))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderMessages() string {
	var lines []string
	for _, l := range m.game.Lines() {
		style := lipgloss.NewStyle().Foreground(theme.MessageColor(l.Color.String()))
		lines = append(lines, style.Render(l.Text))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-1] + "…"
	}
	return s
}
