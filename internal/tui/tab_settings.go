package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

const (
	settingsFieldUserID = iota
	settingsFieldDisplayName
	settingsFieldCurrency
	settingsFieldDaily
	settingsFieldRisk
	settingsFieldHorizon
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldCount
)

// settingsState tracks the settings tab.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
}

func (a App) updateSettingsKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		a.settings.cursor = min(a.settings.cursor+1, settingsFieldCount-1)
	case "k", "up":
		a.settings.cursor = max(a.settings.cursor-1, 0)
	case "enter":
		if a.settings.cursor == settingsFieldAutoRefresh {
			a.autoRefresh = !a.autoRefresh
			return a, nil, true
		}
		m, cmd := a.settingsStartEdit()
		return m, cmd, true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	a.settings.editing = true
	a.settings.saved = false

	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40

	switch a.settings.cursor {
	case settingsFieldUserID:
		ti.SetValue(a.userID)
	case settingsFieldDisplayName:
		ti.SetValue(a.cfg.General.DisplayName)
	case settingsFieldCurrency:
		ti.Placeholder = strings.Join(currencyOptions, ", ")
		ti.SetValue(a.cfg.General.Currency)
	case settingsFieldDaily:
		ti.SetValue(strconv.FormatFloat(a.cfg.Simulator.DailyContribution, 'f', -1, 64))
	case settingsFieldRisk:
		ti.Placeholder = "conservative, moderate, aggressive"
		ti.SetValue(a.cfg.Simulator.RiskLevel)
	case settingsFieldHorizon:
		ti.Placeholder = "1, 3, 6, 12 or 60"
		ti.SetValue(strconv.Itoa(a.cfg.Simulator.Horizon))
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(a.cfg.Appearance.Theme)
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		prevUser := a.userID
		a.settings.saveErr = a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		if a.userID != prevUser {
			a.refreshing = true
			return a, a.loadCmd()
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates the edited field, applies it and writes the
// config file. Invalid input leaves the config untouched.
func (a *App) settingsSave() error {
	val := strings.TrimSpace(a.settings.input.Value())
	cfg := a.cfg

	switch a.settings.cursor {
	case settingsFieldUserID:
		if val == "" {
			return errors.New("user id cannot be empty")
		}
		cfg.General.UserID = val
	case settingsFieldDisplayName:
		cfg.General.DisplayName = val
	case settingsFieldCurrency:
		if val == "" {
			return errors.New("currency cannot be empty")
		}
		cfg.General.Currency = strings.ToUpper(val)
	case settingsFieldDaily:
		if err := validateDaily(val); err != nil {
			return err
		}
		cfg.Simulator.DailyContribution, _ = strconv.ParseFloat(val, 64)
	case settingsFieldRisk:
		r, err := projection.ParseRiskLevel(val)
		if err != nil {
			return err
		}
		cfg.Simulator.RiskLevel = string(r)
	case settingsFieldHorizon:
		h, err := strconv.Atoi(val)
		if err != nil || !projection.ValidHorizon(h) {
			return fmt.Errorf("horizon must be one of %v", projection.Horizons)
		}
		cfg.Simulator.Horizon = h
	case settingsFieldTheme:
		found := false
		for _, th := range theme.All {
			if th.Name == val {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown theme %q", val)
		}
		cfg.Appearance.Theme = val
	}

	if err := config.SaveTo(a.configPath, cfg); err != nil {
		return err
	}
	a.cfg = cfg
	theme.SetActive(cfg.Appearance.Theme)
	switch a.settings.cursor {
	case settingsFieldUserID:
		a.userID = cfg.General.UserID
	case settingsFieldDaily, settingsFieldRisk, settingsFieldHorizon:
		a.sim = newSimState(cfg.Simulator)
	}
	return nil
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.cfg

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	orNotSet := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	fields := []struct{ label, value string }{
		{"User ID", orNotSet(a.userID)},
		{"Display Name", orNotSet(cfg.General.DisplayName)},
		{"Currency", cfg.General.Currency},
		{"Daily Contribution", strconv.FormatFloat(cfg.Simulator.DailyContribution, 'f', -1, 64)},
		{"Risk Level", cfg.Simulator.RiskLevel},
		{"Horizon", horizonLabel(cfg.Simulator.Horizon)},
		{"Theme", cfg.Appearance.Theme},
		{"Auto Refresh", fmt.Sprintf("%t (every %s, this session)", a.autoRefresh, defaultRefresh)},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-20s ", f.label)))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}
		if i == a.settings.cursor {
			line := markerStyle.Render("▸ ") +
				selectedLabelStyle.Render(fmt.Sprintf("%-20s ", f.label+":")) +
				selectedStyle.Render(f.value)
			form.WriteString(line)
			if pad := innerW - lipgloss.Width(line); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		} else {
			form.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			form.WriteString(labelStyle.Render(fmt.Sprintf("%-20s ", f.label+":")))
			form.WriteString(valueStyle.Render(f.value))
		}
		form.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		form.WriteString("\n" + lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).Render("Not saved: "+a.settings.saveErr.Error()))
	} else if a.settings.saved {
		form.WriteString("\n" + lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface).Render("Saved"))
	}
	form.WriteString("\n" + labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	info.WriteString(labelStyle.Render("Config file:   ") + valueStyle.Render(a.configPath) + "\n")
	info.WriteString(labelStyle.Render("Database:      ") + valueStyle.Render(cfg.Database.Driver) + "\n")
	info.WriteString(labelStyle.Render("Transactions:  ") + valueStyle.Render(cli.FormatWhole(int64(len(a.data.txs)))) + "\n")
	info.WriteString(labelStyle.Render("Last load:     ") + valueStyle.Render(fmt.Sprintf("%s (%dms)", cli.FormatAgo(a.data.loadedAt), a.data.loadTaken.Milliseconds())))

	return components.ContentCard("Settings", form.String(), cw) + "\n" +
		components.ContentCard("About", info.String(), cw)
}
