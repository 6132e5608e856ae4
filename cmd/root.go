package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fintrack/internal/config"
)

var (
	flagConfig  string
	flagEnvFile string
	flagUser    string
	flagQuiet   bool
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:           "fintrack",
	Short:         "Personal finance backend and operator tools",
	Long:          "Run the fintrack API daemon, inspect ledgers, project savings and manage bank tokens.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return config.LoadEnv(flagEnvFile)
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.ConfigPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Optional .env file with secrets")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User id (defaults to [general] user_id)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable JSON where supported")
}

func loadConfig() (config.Config, error) {
	return config.LoadFrom(flagConfig)
}

// resolveUser picks the --user flag, then the configured operator id.
func resolveUser(cfg config.Config) (string, error) {
	if u := strings.TrimSpace(flagUser); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(cfg.General.UserID); u != "" {
		return u, nil
	}
	return "", fmt.Errorf("no user selected: pass --user or set [general] user_id (see `fintrack setup`)")
}

func progressf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
