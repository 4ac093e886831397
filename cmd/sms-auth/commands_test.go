package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/entrhq/sms-e2e/pkg/bootstrap"
	"github.com/entrhq/sms-e2e/pkg/config"
	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "sms-auth-logs")
	if err != nil {
		panic(err)
	}
	os.Setenv(logging.EnvLogDir, dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

const secretJSON = `{"cookies":[],"origins":[{"origin":"https://dash.example.com","localStorage":[{"name":"msal.idtoken","value":"abc"}]}]}`

func envFrom(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func executeCommand(root *cobra.Command, args ...string) error {
	root.SetArgs(args)
	return root.Execute()
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveWith(t, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBaseURL, cfg.TargetBaseURL)
	assert.Equal(t, config.DefaultStatePath, cfg.StatePath)
	assert.Equal(t, config.DefaultLoginTimeout, cfg.LoginTimeout)
	assert.True(t, cfg.Headless)
}

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sms-auth.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
target_base_url: https://file.example.com
state_path: from-file.json
login_timeout: 90s
engine: chromedp
`), 0600))

	env := map[string]string{
		config.EnvBaseURL:   "https://env.example.com",
		config.EnvTimeoutMs: "5000",
	}

	cfg, err := resolveWith(t, env, "--config", file, "--timeout", "2m", "--headed")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.TargetBaseURL, "env beats file")
	assert.Equal(t, "from-file.json", cfg.StatePath, "file beats default")
	assert.Equal(t, 2*time.Minute, cfg.LoginTimeout, "flag beats env")
	assert.Equal(t, config.EngineChromedp, cfg.Engine)
	assert.False(t, cfg.Headless)
}

func TestResolveConfigRejectsInvalid(t *testing.T) {
	_, err := resolveWith(t, nil, "--engine", "firefox")
	assert.ErrorContains(t, err, "invalid configuration")

	_, err = resolveWith(t, map[string]string{config.EnvTimeoutMs: "soon"})
	assert.ErrorContains(t, err, config.EnvTimeoutMs)
}

func TestResolveConfigVerbosity(t *testing.T) {
	cfg, err := resolveWith(t, nil, "-v")
	require.NoError(t, err)
	assert.Equal(t, "verbose", cfg.Logging.Verbosity)

	cfg, err = resolveWith(t, nil, "-q", "-v")
	require.NoError(t, err)
	assert.Equal(t, "quiet", cfg.Logging.Verbosity)
}

// resolveWith parses args against the real root command and resolves the
// config in place of running the bootstrap.
func resolveWith(t *testing.T, env map[string]string, args ...string) (*config.Config, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out, envFrom(env))

	var cfg *config.Config
	var resolveErr error
	bootstrapCmd, _, err := root.Find([]string{"bootstrap"})
	require.NoError(t, err)
	bootstrapCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		opts := optionsFrom(t, cmd)
		cfg, resolveErr = resolveConfig(cmd, opts, envFrom(env))
		return nil
	}

	require.NoError(t, executeCommand(root, append([]string{"bootstrap"}, args...)...))
	return cfg, resolveErr
}

// optionsFrom reads parsed flag values back into a cliOptions.
func optionsFrom(t *testing.T, cmd *cobra.Command) *cliOptions {
	t.Helper()
	flags := cmd.Flags()
	opts := &cliOptions{}
	var err error
	opts.configFile, err = flags.GetString("config")
	require.NoError(t, err)
	opts.statePath, _ = flags.GetString("state")
	opts.baseURL, _ = flags.GetString("base-url")
	opts.timeout, _ = flags.GetDuration("timeout")
	opts.engine, _ = flags.GetString("engine")
	opts.headed, _ = flags.GetBool("headed")
	opts.verbose, _ = flags.GetBool("verbose")
	opts.quiet, _ = flags.GetBool("quiet")
	opts.artifactsDir, _ = flags.GetString("artifacts")
	return opts
}

func TestBootstrapFromSecret(t *testing.T) {
	state := filepath.Join(t.TempDir(), "auth-state.json")
	var out bytes.Buffer
	root := newRootCmd(&out, envFrom(map[string]string{config.EnvSecret: secretJSON}))

	require.NoError(t, executeCommand(root, "bootstrap", "--state", state))

	data, err := os.ReadFile(state)
	require.NoError(t, err)
	assert.Equal(t, secretJSON, string(data))
	assert.Contains(t, out.String(), "sourced from secret")
}

func TestBootstrapFromCacheWithArtifacts(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "auth-state.json")
	require.NoError(t, os.WriteFile(state, []byte(secretJSON), 0600))
	results := filepath.Join(dir, "results")

	var out bytes.Buffer
	root := newRootCmd(&out, envFrom(nil))
	require.NoError(t, executeCommand(root, "bootstrap", "--state", state, "--artifacts", results, "-q"))

	assert.Contains(t, out.String(), "sourced from cache")
	assert.NotContains(t, out.String(), "[1]", "quiet mode hides steps")
	assert.FileExists(t, filepath.Join(results, bootstrap.SummaryFile))
}

func TestBootstrapRejectsBadConfig(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, envFrom(nil))
	err := executeCommand(root, "bootstrap", "--base-url", "ftp://dash.example.com")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestVerifyRequiresStateFile(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, envFrom(nil))
	err := executeCommand(root, "verify", "--state", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read storage state")
}

func TestBootstrapFailureKeepsErrorChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	root := newRootCmd(&out, envFrom(nil))
	root.SetArgs([]string{"bootstrap", "--state", filepath.Join(t.TempDir(), "auth-state.json"), "--engine", "playwright"})

	err := root.ExecuteContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, bootstrap.ErrAuthenticationTimeout)
	assert.Contains(t, err.Error(), "bootstrap failed:")
}

func TestVerifyRejectsZeroWorkers(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, envFrom(nil))
	err := executeCommand(root, "verify", "--workers", "0")
	assert.ErrorContains(t, err, "--workers must be at least 1")
}
