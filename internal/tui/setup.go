package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

var currencyOptions = []string{"USD", "EUR", "GBP", "INR", "JPY", "NGN"}

// setupValues is the state the first-run form edits.
type setupValues struct {
	userID      string
	displayName string
	currency    string
	daily       string
	risk        string
	themeName   string
}

func newSetupValues(cfg config.Config, userID string) *setupValues {
	if userID == "" {
		userID = cfg.General.UserID
	}
	return &setupValues{
		userID:      userID,
		displayName: cfg.General.DisplayName,
		currency:    cfg.General.Currency,
		daily:       strconv.FormatFloat(cfg.Simulator.DailyContribution, 'f', -1, 64),
		risk:        cfg.Simulator.RiskLevel,
		themeName:   cfg.Appearance.Theme,
	}
}

func newSetupForm(v *setupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themes = append(themes, huh.NewOption(t.Name, t.Name))
	}
	risks := make([]huh.Option[string], 0, len(projection.RiskLevels))
	for _, r := range projection.RiskLevels {
		risks = append(risks, huh.NewOption(string(r), string(r)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to fintrack").
				Description("A few settings and you're in. Everything here can be changed later\nfrom the Settings tab or `fintrack config`."),
			huh.NewInput().
				Title("User ID").
				Description("The ledger owner id used by the API and the CLI.").
				Value(&v.userID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a user id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Display name").
				Description("Shown on leaderboards.").
				Value(&v.displayName),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Currency").
				Options(huh.NewOptions(currencyOptions...)...).
				Value(&v.currency),
			huh.NewInput().
				Title("Daily savings contribution").
				Value(&v.daily).
				Validate(validateDaily),
			huh.NewSelect[string]().
				Title("Risk level").
				Options(risks...).
				Value(&v.risk),
			huh.NewSelect[string]().
				Title("Theme").
				Options(themes...).
				Value(&v.themeName),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}

func validateDaily(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number, e.g. 10 or 12.50")
	}
	if f < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

// apply copies the form values onto cfg.
func (v *setupValues) apply(cfg *config.Config) error {
	cfg.General.UserID = strings.TrimSpace(v.userID)
	cfg.General.DisplayName = strings.TrimSpace(v.displayName)
	if v.currency != "" {
		cfg.General.Currency = v.currency
	}
	daily, err := strconv.ParseFloat(strings.TrimSpace(v.daily), 64)
	if err != nil {
		return fmt.Errorf("daily contribution: %w", err)
	}
	cfg.Simulator.DailyContribution = daily
	if v.risk != "" {
		cfg.Simulator.RiskLevel = v.risk
	}
	if v.themeName != "" {
		cfg.Appearance.Theme = v.themeName
	}
	return nil
}

func (a *App) saveSetupConfig() error {
	if a.setupVals == nil {
		return nil
	}
	if err := a.setupVals.apply(&a.cfg); err != nil {
		return err
	}
	if a.userID == "" {
		a.userID = a.cfg.General.UserID
	}
	theme.SetActive(a.cfg.Appearance.Theme)
	a.sim = newSimState(a.cfg.Simulator)
	return config.SaveTo(a.configPath, a.cfg)
}

// RunSetup runs the first-run form standalone and saves the result to
// path. It returns the saved config.
func RunSetup(cfg config.Config, path string) (config.Config, error) {
	v := newSetupValues(cfg, "")
	if err := newSetupForm(v).Run(); err != nil {
		return cfg, err
	}
	if err := v.apply(&cfg); err != nil {
		return cfg, err
	}
	if err := config.SaveTo(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
