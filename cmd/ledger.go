package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/store"
)

var (
	flagTxDays  int
	flagTxKind  string
	flagTxLimit int
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "List recent transactions with a period summary",
	RunE:    runTransactions,
}

var rankCmd = &cobra.Command{
	Use:   "rank [YYYY-MM]",
	Short: "Recompute the monthly savings leaderboard",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRank,
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect subscriptions and habitual daily expenses",
	RunE:  runDetect,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Categorize every uncategorized transaction",
	RunE:  runBackfill,
}

func init() {
	transactionsCmd.Flags().IntVarP(&flagTxDays, "days", "n", 30, "Time window in days")
	transactionsCmd.Flags().StringVar(&flagTxKind, "kind", "", "Filter to income or expense")
	transactionsCmd.Flags().IntVar(&flagTxLimit, "limit", 50, "Max rows to print")
	rootCmd.AddCommand(transactionsCmd, rankCmd, detectCmd, backfillCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runTransactions(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *appRuntime) error {
		user, err := resolveUser(rt.cfg)
		if err != nil {
			return err
		}
		ctx := context.Background()
		now := time.Now()
		since := now.AddDate(0, 0, -flagTxDays)

		f := store.TxFilter{UserID: user, Since: since, Until: now}
		switch model.TxKind(flagTxKind) {
		case "":
		case model.Income, model.Expense:
			f.Kind = model.TxKind(flagTxKind)
		default:
			return fmt.Errorf("--kind must be income or expense, got %q", flagTxKind)
		}
		txs, err := rt.store.ListTransactions(ctx, f)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(txs)
		}
		cats, err := rt.store.ListCategories(ctx, user)
		if err != nil {
			return err
		}
		names := make(map[string]string, len(cats))
		for _, c := range cats {
			names[c.ID] = c.Name
		}

		cur := rt.cfg.General.Currency
		rows := make([][]string, 0, min(len(txs), flagTxLimit))
		for i, t := range txs {
			if i == flagTxLimit {
				break
			}
			amount := cli.FormatSignedMoney(t.Signed(), cur)
			if t.Kind == model.Income {
				amount = cli.IncomeStyle.Render(amount)
			} else {
				amount = cli.ExpenseStyle.Render(amount)
			}
			cat := names[t.CategoryID]
			if cat == "" {
				cat = "-"
			}
			rows = append(rows, []string{cli.FormatDate(t.OccurredAt), t.Description, cat, amount})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Transactions  |  last %dd", flagTxDays),
			Headers: []string{"Date", "Description", "Category", "Amount"},
			Rows:    rows,
			Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignRight},
		}))
		if len(txs) > flagTxLimit {
			fmt.Printf("  ... %d more\n", len(txs)-flagTxLimit)
		}

		s := pipeline.Aggregate(txs, since, now)
		fmt.Println()
		fmt.Printf("  Income %s  Expense %s  Net %s  Savings rate %s\n",
			cli.FormatMoney(s.Income, cur),
			cli.FormatMoney(s.Expense, cur),
			cli.FormatSignedMoney(s.Net, cur),
			cli.FormatPercent(s.SavingsRate))
		fmt.Printf("  %s/day over %d active days\n", cli.FormatMoney(s.SpendPerDay, cur), s.ActiveDays)
		fmt.Println()
		return nil
	})
}

func runRank(_ *cobra.Command, args []string) error {
	month := time.Now().Format("2006-01")
	if len(args) == 1 {
		month = args[0]
	}
	return withRuntime(func(rt *appRuntime) error {
		progressf("  Loading ledgers...\n")
		rows, err := rt.social.ComputeRankings(context.Background(), month, func(cur, total int) {
			progressf("\r  Loaded [%d/%d] users", cur, total)
		})
		progressf("\n")
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rows)
		}

		cur := rt.cfg.General.Currency
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			name := r.DisplayName
			if name == "" {
				name = r.UserID
			}
			table = append(table, []string{
				fmt.Sprintf("#%d", r.Rank),
				name,
				fmt.Sprintf("%.1f", r.Score),
				cli.FormatPercent(r.SavingsRate),
				cli.FormatMoney(r.Income, cur),
				cli.FormatMoney(r.Expense, cur),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Leaderboard  |  " + month,
			Headers: []string{"Rank", "User", "Score", "Saved", "Income", "Expense"},
			Rows:    table,
			Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft},
		}))
		fmt.Println()
		return nil
	})
}

func runDetect(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *appRuntime) error {
		user, err := resolveUser(rt.cfg)
		if err != nil {
			return err
		}
		rep, err := rt.insights.DetectSubscriptions(context.Background(), user)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rep)
		}

		cur := rt.cfg.General.Currency
		subs := make([][]string, 0, len(rep.Subscriptions))
		for _, s := range rep.Subscriptions {
			subs = append(subs, []string{
				s.Merchant,
				string(s.Cadence),
				cli.FormatMoney(s.Amount, cur),
				cli.FormatDate(s.NextCharge),
				s.Status,
				cli.FormatPercent(s.Confidence),
			})
		}
		daily := make([][]string, 0, len(rep.DailyExpenses))
		for _, d := range rep.DailyExpenses {
			daily = append(daily, []string{
				d.Merchant,
				cli.FormatWhole(int64(d.Count)),
				cli.FormatMoney(d.Average, cur),
				cli.FormatMoney(d.MonthlyEstimate, cur),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Subscriptions",
			Headers: []string{"Merchant", "Cadence", "Amount", "Next", "Status", "Confidence"},
			Rows:    subs,
			Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignLeft},
		}))
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Daily habits",
			Headers: []string{"Merchant", "Count", "Average", "Per month"},
			Rows:    daily,
		}))
		if rep.Fallback {
			fmt.Printf("\n  Merchant names not refined: %s\n", rep.Reason)
		}
		fmt.Println()
		return nil
	})
}

func runBackfill(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *appRuntime) error {
		user, err := resolveUser(rt.cfg)
		if err != nil {
			return err
		}
		res, err := rt.insights.Backfill(context.Background(), user, func(done, total int) {
			progressf("\r  Categorized [%d/%d]", done, total)
		})
		progressf("\n")
		if flagJSON && err == nil {
			return printJSON(res)
		}

		fmt.Printf("  Total: %d  Categorized: %d  Rule fallbacks: %d  Failed: %d  Batches: %d\n",
			res.Total, res.Categorized, res.Fallbacks, res.Failed, res.Batches)
		if res.Stopped {
			fmt.Println("  Stopped early; rerun once the gateway quota recovers.")
		}
		return err
	})
}
