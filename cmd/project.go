package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/projection"
)

var (
	flagProjDaily     float64
	flagProjRisk      string
	flagProjHorizon   int
	flagProjExtras    []string
	flagProjWithdraws []string
	flagProjTarget    float64
	flagProjCalendar  bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Simulate savings against invested growth",
	RunE:  runProject,
}

func init() {
	projectCmd.Flags().Float64Var(&flagProjDaily, "daily", 0, "Daily contribution (default [simulator] daily_contribution)")
	projectCmd.Flags().StringVarP(&flagProjRisk, "risk", "r", "", "Risk level: conservative, moderate or aggressive")
	projectCmd.Flags().IntVar(&flagProjHorizon, "horizon", 0, "Months to project: 1, 3, 6, 12 or 60")
	projectCmd.Flags().StringArrayVar(&flagProjExtras, "extra", nil, "One-time contribution as MONTH:AMOUNT (repeatable)")
	projectCmd.Flags().StringArrayVar(&flagProjWithdraws, "withdraw", nil, "One-time withdrawal as MONTH:AMOUNT (repeatable)")
	projectCmd.Flags().Float64Var(&flagProjTarget, "target", 0, "Report the first month the invested value reaches this amount")
	projectCmd.Flags().BoolVar(&flagProjCalendar, "calendar", false, "Label months from the current month")
	rootCmd.AddCommand(projectCmd)
}

func runProject(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in := projection.Input{
		DailyContribution: cfg.Simulator.DailyContribution,
		Horizon:           cfg.Simulator.Horizon,
	}
	if flagProjDaily > 0 {
		in.DailyContribution = flagProjDaily
	}
	if flagProjHorizon != 0 {
		in.Horizon = flagProjHorizon
	}
	if !projection.ValidHorizon(in.Horizon) {
		return fmt.Errorf("horizon must be one of %v, got %d", projection.Horizons, in.Horizon)
	}
	risk := cfg.Simulator.RiskLevel
	if flagProjRisk != "" {
		risk = flagProjRisk
	}
	if in.Risk, err = projection.ParseRiskLevel(risk); err != nil {
		return err
	}
	if in.Extras, err = parseEvents(flagProjExtras); err != nil {
		return fmt.Errorf("--extra: %w", err)
	}
	if in.Withdrawals, err = parseEvents(flagProjWithdraws); err != nil {
		return fmt.Errorf("--withdraw: %w", err)
	}
	if flagProjCalendar {
		in.Start = time.Now()
	}

	engine := projection.NewEngine(cfg.Simulator.Rates)
	res := engine.Project(in)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	cur := cfg.General.Currency
	money := func(v int64) string { return cli.FormatMoney(decimal.NewFromInt(v), cur) }

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Savings projection  |  %s/day  |  %s %.1f%%",
		cli.FormatMoney(decimal.NewFromFloat(in.DailyContribution), cur),
		in.Risk, engine.Rates().Annual(in.Risk)*100)))
	fmt.Println()

	rows := make([][]string, 0, len(res.Points))
	invested := make([]float64, 0, len(res.Points))
	for _, p := range res.Points {
		rows = append(rows, []string{p.Label, money(p.Principal), money(p.InvestedValue), money(p.Growth())})
		invested = append(invested, float64(p.InvestedValue))
	}
	rows = append(rows, cli.SeparatorRow, []string{"Total", money(res.FinalPrincipal), money(res.FinalInvested), money(res.TotalReturns)})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Saved", "Invested", "Growth"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Printf("  Invested  %s\n", cli.RenderSparkline(invested))
	fmt.Printf("  Avg monthly growth %s, best month %d\n", money(res.AvgMonthlyGrowth), res.BestMonth)

	if flagProjTarget > 0 {
		if m, ok := engine.MonthsToTarget(in, flagProjTarget, 600); ok {
			fmt.Printf("  Reaches %s in month %d\n", cli.FormatMoney(decimal.NewFromFloat(flagProjTarget), cur), m)
		} else {
			fmt.Printf("  %s is out of reach within 50 years\n", cli.FormatMoney(decimal.NewFromFloat(flagProjTarget), cur))
		}
	}
	fmt.Println()
	return nil
}

// parseEvents reads MONTH:AMOUNT pairs.
func parseEvents(specs []string) ([]projection.Event, error) {
	out := make([]projection.Event, 0, len(specs))
	for _, s := range specs {
		monthStr, amountStr, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("%q is not MONTH:AMOUNT", s)
		}
		month, err := strconv.Atoi(strings.TrimSpace(monthStr))
		if err != nil || month < 1 {
			return nil, fmt.Errorf("%q: month must be a positive integer", s)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(amountStr), 64)
		if err != nil || amount < 0 {
			return nil, fmt.Errorf("%q: amount must be a non-negative number", s)
		}
		out = append(out, projection.Event{Month: month, Amount: amount})
	}
	return out, nil
}
