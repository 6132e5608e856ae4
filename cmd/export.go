package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fintrack/internal/export"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/store"
)

var (
	flagExportMonths int
	flagExportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger to an Excel workbook",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().IntVar(&flagExportMonths, "months", 12, "Months of history to include")
	exportCmd.Flags().StringVarP(&flagExportOut, "output", "o", "", "Output file (default fintrack_YYYYMMDD.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	if flagExportMonths < 1 || flagExportMonths > 120 {
		return fmt.Errorf("--months must be between 1 and 120")
	}
	return withRuntime(func(rt *appRuntime) error {
		user, err := resolveUser(rt.cfg)
		if err != nil {
			return err
		}
		ctx := context.Background()
		now := time.Now()
		since := pipeline.StartOfMonth(now).AddDate(0, -(flagExportMonths - 1), 0)

		txs, err := rt.store.ListTransactions(ctx, store.TxFilter{UserID: user, Since: since})
		if err != nil {
			return err
		}
		cats, err := rt.store.ListCategories(ctx, user)
		if err != nil {
			return err
		}

		out := flagExportOut
		if out == "" {
			out = fmt.Sprintf("fintrack_%s.xlsx", now.Format("20060102"))
		}
		if err := export.WriteFile(out, export.Ledger{
			Transactions: txs,
			Categories:   cats,
			Months:       flagExportMonths,
			Now:          now,
		}); err != nil {
			return err
		}
		abs, _ := filepath.Abs(out)
		fmt.Printf("  Wrote %d transactions to %s\n", len(txs), abs)
		return nil
	})
}
