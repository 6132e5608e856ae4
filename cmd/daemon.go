package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fintrack/internal/api"
	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/daemon"
)

type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Driver    string    `json:"driver"`
	Config    string    `json:"config"`
}

var (
	flagServeAddr         string
	flagServeInterval     time.Duration
	flagServeEventsBuffer int
	flagServeAccessLog    bool
	flagPIDFile           string
	flagLogFile           string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API daemon in the foreground",
	RunE:  runServe,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background API daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon as a background process",
	RunE:  runDaemonStart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(config.DataDir(), "fintrackd.pid")
	defaultLog := filepath.Join(config.DataDir(), "fintrackd.log")

	for _, c := range []*cobra.Command{serveCmd, daemonCmd} {
		c.PersistentFlags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default [server] addr)")
		c.PersistentFlags().StringVar(&flagPIDFile, "pid-file", defaultPID, "PID file path")
	}
	for _, c := range []*cobra.Command{serveCmd, daemonStartCmd} {
		c.Flags().DurationVar(&flagServeInterval, "interval", 0, "Summary refresh interval (default [server] summary_interval)")
		c.Flags().IntVar(&flagServeEventsBuffer, "events-buffer", 200, "Max in-memory summary events retained")
		c.Flags().BoolVar(&flagServeAccessLog, "access-log", false, "Log every HTTP request")
	}
	daemonStartCmd.Flags().StringVar(&flagLogFile, "log-file", defaultLog, "Log file for the background process")

	daemonCmd.AddCommand(daemonStartCmd, daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(serveCmd, daemonCmd)
}

func serveAddr(cfg config.Config) string {
	if flagServeAddr != "" {
		return flagServeAddr
	}
	return cfg.Server.Addr
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if missing := config.ReadSecrets(cfg).Missing(); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "  Warning: %s not set; dependent endpoints will answer 401/503\n", strings.Join(missing, ", "))
	}

	if err := ensureDaemonNotRunning(flagPIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagPIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}

	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := serveAddr(cfg)
	pid := os.Getpid()
	if err := writePID(flagPIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagPIDFile) }()

	_ = writeState(statePath(flagPIDFile), daemonRuntimeState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		Driver:    rt.store.Driver(),
		Config:    flagConfig,
	})
	defer func() { _ = os.Remove(statePath(flagPIDFile)) }()

	interval := flagServeInterval
	if interval <= 0 {
		interval = config.Duration(cfg.Server.SummaryInterval, 30*time.Second)
	}
	svc := daemon.New(daemon.Config{
		Addr:         addr,
		Interval:     interval,
		EventsBuffer: flagServeEventsBuffer,
		Driver:       rt.store.Driver(),
	}, rt.store, rt.hub, rt.market)

	srv := api.NewServer(api.Deps{
		Store:         rt.store,
		Hub:           rt.hub,
		Insights:      rt.insights,
		Social:        rt.social,
		Banks:         rt.banks,
		Market:        rt.market,
		Auth:          rt.auth,
		WebhookSecret: rt.secrets.WebhookSecret,
		Metrics:       cfg.Server.Metrics,
		AccessLog:     flagServeAccessLog,
		Status:        func() any { return svc.Status() },
	})

	fmt.Printf("  fintrack listening on http://%s (%s store)\n", addr, rt.store.Driver())
	fmt.Printf("  Summary refresh every %s\n", interval)
	fmt.Printf("  Stop with: fintrack daemon stop --pid-file %s\n", flagPIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx, srv.Handler()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	if err := ensureDaemonNotRunning(flagPIDFile); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	addr := serveAddr(cfg)
	args := []string{
		"serve",
		"--config", flagConfig,
		"--env-file", flagEnvFile,
		"--addr", addr,
		"--pid-file", flagPIDFile,
		"--events-buffer", strconv.Itoa(flagServeEventsBuffer),
	}
	if flagServeInterval > 0 {
		args = append(args, "--interval", flagServeInterval.String())
	}
	if flagServeAccessLog {
		args = append(args, "--access-log")
	}

	if err := os.MkdirAll(filepath.Dir(flagLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", addr)
	fmt.Printf("  Log: %s\n", flagLogFile)
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagPIDFile)
	if err != nil {
		fmt.Printf("  Daemon: not running (pid file not found)\n")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagServeAddr
	if st, err := readState(statePath(flagPIDFile)); err == nil && st.Addr != "" && addr == "" {
		addr = st.Addr
	}
	if addr == "" {
		addr = config.DefaultConfig().Server.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	cfg, _ := loadConfig()
	cur := cfg.General.Currency
	fmt.Printf("  Store: %s\n", st.Driver)
	fmt.Printf("  Last refresh: %s (%d total)\n", cli.FormatAgo(st.LastPollAt), st.PollCount)
	fmt.Printf("  %s: %d users, %s transactions\n", st.Summary.Month, st.Summary.Users, cli.FormatWhole(int64(st.Summary.Transactions)))
	fmt.Printf("  Income %s  Expense %s  Net %s\n",
		cli.FormatMoney(st.Summary.Income, cur),
		cli.FormatMoney(st.Summary.Expense, cur),
		cli.FormatSignedMoney(st.Summary.Net, cur))
	fmt.Printf("  Stream clients: %d events, %d hub\n", st.SubscriberCount, st.HubSubscribers)
	if len(st.MarketSymbols) > 0 {
		fmt.Printf("  Market feeds: %s\n", strings.Join(st.MarketSymbols, ", "))
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagPIDFile)
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagPIDFile)
			_ = os.Remove(statePath(flagPIDFile))
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

func ensureDaemonNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // daemon pid path is configured by the local user
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st daemonRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (daemonRuntimeState, error) {
	var st daemonRuntimeState
	data, err := os.ReadFile(path) //nolint:gosec // daemon state path is configured by the local user
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}
