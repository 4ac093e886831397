package main

import (
	"fmt"
	"io"
	"time"

	"github.com/entrhq/sms-e2e/pkg/bootstrap"
	"github.com/entrhq/sms-e2e/pkg/browser"
	"github.com/entrhq/sms-e2e/pkg/config"
	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/entrhq/sms-e2e/pkg/storagestate"
	"github.com/spf13/cobra"
)

// cliOptions holds flag values. Only flags the user set override the config.
type cliOptions struct {
	configFile   string
	statePath    string
	baseURL      string
	timeout      time.Duration
	engine       string
	headed       bool
	verbose      bool
	quiet        bool
	artifactsDir string
}

func newRootCmd(stdout io.Writer, getenv func(string) string) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "sms-auth",
		Short: "Establish and check the SMS dashboard test session",
		Long: `sms-auth prepares the authenticated browser session shared by the SMS
dashboard end-to-end workers.

The session is taken from the first source that works:
  1. AUTH_STATE_JSON, a storage state injected by CI
  2. the state file left by an earlier run
  3. an interactive browser login`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to configuration file (YAML)")
	root.PersistentFlags().StringVar(&opts.statePath, "state", "", "storage state file (default auth-state.json)")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "dashboard base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "interactive login timeout (default 60s)")
	root.PersistentFlags().StringVar(&opts.engine, "engine", "", "browser engine: playwright or chromedp")
	root.PersistentFlags().BoolVar(&opts.headed, "headed", false, "show the browser window")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only print warnings, errors and the result")

	root.AddCommand(newBootstrapCmd(opts, getenv))
	root.AddCommand(newVerifyCmd(opts, getenv))
	return root
}

// resolveConfig layers defaults, the config file, the environment and flags.
func resolveConfig(cmd *cobra.Command, opts *cliOptions, getenv func(string) string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("state") {
		cfg.StatePath = opts.statePath
	}
	if flags.Changed("base-url") {
		cfg.TargetBaseURL = opts.baseURL
	}
	if flags.Changed("timeout") {
		cfg.LoginTimeout = opts.timeout
	}
	if flags.Changed("engine") {
		cfg.Engine = opts.engine
	}
	if flags.Changed("headed") {
		cfg.Headless = !opts.headed
	}
	if flags.Changed("artifacts") {
		cfg.Artifacts.Enabled = true
		cfg.Artifacts.OutputDir = opts.artifactsDir
	}
	switch {
	case opts.quiet:
		cfg.Logging.Verbosity = "quiet"
	case opts.verbose:
		cfg.Logging.Verbosity = "verbose"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(console *logging.Console) *logging.Logger {
	logger, err := logging.NewLogger("sms-auth")
	if err != nil {
		console.Warningf("Debug log unavailable, logging to stderr: %v", err)
	}
	return logger
}

func newBootstrapCmd(opts *cliOptions, getenv func(string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Ensure an authenticated session is stored in the state file",
		Long: `Ensure an authenticated session is stored in the state file.

Exits non-zero only when every source failed, for example when the welcome
marker did not appear before the login timeout.

Examples:
  sms-auth bootstrap
  sms-auth bootstrap --headed --timeout 3m
  AUTH_STATE_JSON="$(cat auth-state.json)" sms-auth bootstrap -q`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, getenv)
			if err != nil {
				return err
			}

			console := logging.NewConsole(cmd.OutOrStdout(), logging.ParseLevel(cfg.Logging.Verbosity))
			logger := newLogger(console)
			defer logger.Close()
			console.Debugf("Debug log: %s", logger.LogPath())

			engine, err := browser.NewEngine(cfg.Engine, logger)
			if err != nil {
				return err
			}

			b, err := bootstrap.New(bootstrap.Options{
				Config:  cfg,
				Engine:  engine,
				Console: console,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			outcome, _, err := b.EnsureSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("bootstrap %s: %w", outcome.Source, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.artifactsDir, "artifacts", "", "write "+bootstrap.SummaryFile+" to this directory")
	return cmd
}

func newVerifyCmd(opts *cliOptions, getenv func(string) string) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Open the dashboard with the stored session and check it is signed in",
		Long: `Open the dashboard with the stored session and check it is signed in.

Each worker gets its own browser context preloaded with the state file, the
way parallel test workers do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return fmt.Errorf("--workers must be at least 1, got %d", workers)
			}
			cfg, err := resolveConfig(cmd, opts, getenv)
			if err != nil {
				return err
			}

			console := logging.NewConsole(cmd.OutOrStdout(), logging.ParseLevel(cfg.Logging.Verbosity))
			logger := newLogger(console)
			defer logger.Close()

			console.Header("SMS session check")
			console.Step(fmt.Sprintf("Loading %s", cfg.StatePath))
			state, err := storagestate.Load(cfg.StatePath)
			if err != nil {
				return err
			}

			matcher, err := storagestate.NewMarkerMatcher(cfg.AuthMarkers)
			if err != nil {
				return err
			}
			if report, err := state.Inspect(cfg.TargetBaseURL, matcher); err == nil {
				console.Infof("%d origins, %d matching %s", report.Origins, len(report.MatchingOrigins), cfg.TargetBaseURL)
				if !report.Valid() {
					console.Warningf("No auth entries on an origin matching the target")
				}
			}

			manager := browser.NewSessionManager()
			manager.SetMaxSessions(workers)
			if err := manager.Initialize(); err != nil {
				return err
			}
			defer func() {
				if err := manager.Shutdown(); err != nil {
					console.Warningf("Browser did not shut down cleanly: %v", err)
					logger.Warnf("Release failed: %v", err)
				}
			}()

			names := make([]string, 0, workers)
			for i := 1; i <= workers; i++ {
				name := fmt.Sprintf("worker-%d", i)
				if _, err := manager.StartSession(name, browser.SessionOptions{
					Headless:          cfg.Headless,
					IgnoreHTTPSErrors: true,
					Args:              cfg.BrowserArgs,
					StorageState:      state,
				}); err != nil {
					return err
				}
				names = append(names, name)
			}

			failed := 0
			for _, name := range names {
				console.Step(fmt.Sprintf("Opening %s as %s", cfg.LoginURL(), name))
				if !verifySession(manager, name, cfg, logger) {
					console.Warningf("%s may need to re-authenticate: %q not visible", name, cfg.WelcomeSelector)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("stored session is not authenticated in %d of %d workers", failed, workers)
			}
			console.Successf("Session is authenticated in %d workers", workers)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 1, "number of worker contexts to check")
	return cmd
}

// verifySession opens the dashboard in the named session and checks the
// welcome marker.
func verifySession(manager *browser.SessionManager, name string, cfg *config.Config, logger *logging.Logger) bool {
	session, err := manager.GetSession(name)
	if err != nil {
		logger.Errorf("Verify %s: %v", name, err)
		return false
	}
	if err := session.Navigate(cfg.LoginURL(), browser.NavigateOptions{
		WaitUntil: "networkidle",
		Timeout:   cfg.LoginTimeoutMs(),
	}); err != nil {
		logger.Errorf("Verify %s: %v", name, err)
		return false
	}
	return session.VerifyAuthenticated(cfg.WelcomeSelector, cfg.LoginTimeoutMs(), logger)
}
