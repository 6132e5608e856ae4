// Package tui provides the interactive Bubble Tea dashboard for fintrack.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

// Tab indices, matching components.Tabs.
const (
	tabOverview = iota
	tabSimulator
	tabTransactions
	tabSocial
	tabSettings
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5

	defaultRefresh = 30 * time.Second
)

// DataLoadedMsg carries a finished dashboard load.
type DataLoadedMsg struct {
	Data dashboard
	Err  error
}

type tickMsg struct{}

// Options configures the dashboard.
type Options struct {
	Source     Source
	Config     config.Config
	ConfigPath string
	UserID     string
	Now        func() time.Time
}

// App is the root Bubble Tea model.
type App struct {
	src        Source
	cfg        config.Config
	configPath string
	userID     string
	now        func() time.Time

	data    dashboard
	loaded  bool
	loadErr error

	autoRefresh bool
	lastRefresh time.Time
	refreshing  bool

	width     int
	height    int
	activeTab int
	showHelp  bool

	sim      simState
	txState  txListState
	settings settingsState

	setupForm *huh.Form
	setupVals *setupValues
	needSetup bool

	spinner spinner.Model
}

// NewApp builds the dashboard model. The first-run form is shown when no
// config file exists yet or no user is selected.
func NewApp(opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.ConfigPath()
	}
	_, statErr := os.Stat(opts.ConfigPath)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		src:         opts.Source,
		cfg:         opts.Config,
		configPath:  opts.ConfigPath,
		userID:      opts.UserID,
		now:         opts.Now,
		autoRefresh: true,
		needSetup:   statErr != nil || opts.UserID == "",
		sim:         newSimState(opts.Config.Simulator),
		spinner:     sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnableMouseCellMotion, a.spinner.Tick, tickCmd()}
	if a.needSetup {
		cmds = append(cmds, func() tea.Msg { return setupStartMsg{} })
	} else {
		cmds = append(cmds, a.loadCmd())
	}
	return tea.Batch(cmds...)
}

// setupStartMsg opens the first-run form once the program is running.
type setupStartMsg struct{}

func (a App) loadCmd() tea.Cmd {
	src, user, now := a.src, a.userID, a.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		d, err := loadDashboard(ctx, src, user, now)
		return DataLoadedMsg{Data: d, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		// Tab bar and status bar take a row each.
		a.txState.viewRows = max(1, max(minContentHeight, a.height-2)-6)
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case setupStartMsg:
		a.setupVals = newSetupValues(a.cfg, a.userID)
		a.setupForm = newSetupForm(a.setupVals)
		if a.width > 0 {
			a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
		}
		return a, a.setupForm.Init()

	case DataLoadedMsg:
		a.refreshing = false
		a.lastRefresh = a.now()
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.data = msg.Data
			a.loaded = true
			a.txState.clamp(len(a.visibleTransactions()))
		}
		return a, nil

	case spinner.TickMsg:
		if a.loaded {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && a.now().Sub(a.lastRefresh) >= defaultRefresh {
			a.refreshing = true
			cmds = append(cmds, a.loadCmd())
		}
		return a, tea.Batch(cmds...)

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if a.showHelp || a.needSetup {
		return a, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabTransactions {
			a.txState.move(-1, len(a.visibleTransactions()))
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabTransactions {
			a.txState.move(1, len(a.visibleTransactions()))
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}
	if a.activeTab == tabTransactions && a.txState.searching {
		return a.updateTxSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// Tab-local bindings take precedence over global ones.
	switch a.activeTab {
	case tabSimulator:
		if a.sim.handleKey(key) {
			return a, nil
		}
	case tabTransactions:
		if m, cmd, ok := a.updateTransactionsKey(key); ok {
			return m, cmd
		}
	case tabSettings:
		if m, cmd, ok := a.updateSettingsKey(key); ok {
			return m, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, a.loadCmd()
		}
	case "R":
		a.autoRefresh = !a.autoRefresh
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.settings.saveErr = a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		if a.userID == "" {
			return a, tea.Quit
		}
		return a, a.loadCmd()
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		if a.userID == "" {
			return a, tea.Quit
		}
		return a, a.loadCmd()
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return padHeight(fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  fintrack needs at least %d columns.\n", a.width, minTerminalWidth), a.height)
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewLoading() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logo.Render("◈ fintrack") + muted.Render(" · personal finance") + "\n\n"
	if a.loadErr != nil {
		body += lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render("Load failed: "+a.loadErr.Error()) +
			"\n\n" + muted.Render("[r] retry  [q] quit")
	} else {
		body += a.spinner.View() + muted.Render(" Loading ledger for "+a.userID+"…")
	}
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active
	section := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	desc := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	groups := []struct {
		title string
		binds [][2]string
	}{
		{"Navigation", [][2]string{
			{"o s t c x", "Jump to tab"},
			{"← → tab", "Previous / next tab"},
			{"j k g G", "Move in lists"},
		}},
		{"Simulator", [][2]string{
			{"+ -", "Daily contribution up / down"},
			{"r", "Cycle risk level"},
			{"h", "Cycle horizon"},
		}},
		{"Actions", [][2]string{
			{"/", "Search transactions"},
			{"Enter", "Edit setting / confirm"},
			{"Esc", "Cancel"},
			{"r", "Refresh (outside simulator)"},
			{"R", "Toggle auto-refresh"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true).Render("◈ Keyboard Shortcuts"))
	for _, g := range groups {
		b.WriteString("\n\n" + section.Render(g.title))
		for _, kv := range g.binds {
			b.WriteString("\n  " + keyStyle.Render(fmt.Sprintf("%-10s", kv[0])) + desc.Render("  "+kv[1]))
		}
	}
	b.WriteString("\n\n" + lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("Press any key to close"))

	card := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.BorderAccent).Background(t.Surface).Padding(1, 3)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w, cw := a.width, a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)
	status := components.StatusInfo{
		User:        a.userID,
		DataAge:     a.data.loadedAt.Format("15:04:05"),
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
	}
	if a.loadErr != nil {
		status.Err = "refresh failed: " + a.loadErr.Error()
	}
	statusBar := components.RenderStatusBar(w, status)

	contentH := max(minContentHeight, a.height-lipgloss.Height(header)-lipgloss.Height(statusBar))

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabSimulator:
		content = a.renderSimulatorTab(cw)
	case tabTransactions:
		content = a.renderTransactionsTab(cw, contentH)
	case tabSocial:
		content = a.renderSocialTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	out := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, out,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// tabAtX returns the tab under column x of the tab bar, or -1.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		w := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1 // separator
	}
	return -1
}

func (a App) currency() string {
	return a.cfg.General.Currency
}

func (a App) engine() *projection.Engine {
	return projection.NewEngine(a.cfg.Simulator.Rates)
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	n := strings.Count(s, "\n") + 1
	if n >= h {
		return s
	}
	return s + strings.Repeat("\n", h-n)
}

// fillLinesWithBackground pads each line to w so gaps between cards keep
// the theme background.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line, lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
