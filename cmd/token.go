package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fintrack/internal/auth"
	"github.com/theirongolddev/fintrack/internal/biometric"
	"github.com/theirongolddev/fintrack/internal/config"
)

// operatorIP marks audit rows written from the command line.
const operatorIP = "local-cli"

var (
	flagRequireBiometric bool
	flagAuthTTL          time.Duration
	flagAuthName         string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Encrypt or reveal bank access tokens",
}

var tokenEncryptCmd = &cobra.Command{
	Use:   "encrypt [TOKEN]",
	Short: "Encrypt a bank access token (reads stdin when TOKEN is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenEncrypt,
}

var tokenDecryptCmd = &cobra.Command{
	Use:   "decrypt [CIPHERTEXT]",
	Short: "Reveal a bank access token after a biometric check",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenDecrypt,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Bearer token helpers for local testing",
}

var authIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed bearer token for the selected user",
	RunE:  runAuthIssue,
}

func init() {
	tokenDecryptCmd.Flags().BoolVar(&flagRequireBiometric, "require-biometric", false, "Fail when no biometric reader is available")
	tokenCmd.AddCommand(tokenEncryptCmd, tokenDecryptCmd)

	authIssueCmd.Flags().DurationVar(&flagAuthTTL, "ttl", 24*time.Hour, "Token lifetime")
	authIssueCmd.Flags().StringVar(&flagAuthName, "name", "", "Display name claim")
	authCmd.AddCommand(authIssueCmd)

	rootCmd.AddCommand(tokenCmd, authCmd)
}

// argOrStdin returns args[0] or the first line of stdin.
func argOrStdin(args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no input: pass it as an argument or on stdin")
	}
	return strings.TrimSpace(line), nil
}

func runTokenEncrypt(_ *cobra.Command, args []string) error {
	plain, err := argOrStdin(args)
	if err != nil {
		return err
	}
	return withRuntime(func(rt *appRuntime) error {
		user, err := resolveUser(rt.cfg)
		if err != nil {
			return err
		}
		sealed, err := rt.banks.EncryptToken(context.Background(), user, plain, operatorIP)
		if err != nil {
			return err
		}
		fmt.Println(sealed)
		return nil
	})
}

func runTokenDecrypt(cmd *cobra.Command, args []string) error {
	sealed, err := argOrStdin(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := biometric.Require(ctx, biometric.New(), "reveal a bank access token", flagRequireBiometric); err != nil {
		return err
	}
	return withRuntime(func(rt *appRuntime) error {
		user, err := resolveUser(rt.cfg)
		if err != nil {
			return err
		}
		plain, err := rt.banks.DecryptToken(ctx, user, sealed, operatorIP)
		if err != nil {
			return err
		}
		fmt.Println(plain)
		return nil
	})
}

func runAuthIssue(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	user, err := resolveUser(cfg)
	if err != nil {
		return err
	}
	secret := config.ReadSecrets(cfg).JWTSecret
	if secret == "" {
		return fmt.Errorf("%s is not set", config.EnvJWTSecret)
	}
	a, err := auth.New(secret)
	if err != nil {
		return err
	}
	name := flagAuthName
	if name == "" {
		name = cfg.General.DisplayName
	}
	tok, err := a.Issue(user, name, flagAuthTTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
