// Package config holds the settings that drive a session bootstrap run.
//
// Values are layered: DefaultConfig, then an optional YAML file, then the
// environment, then command-line flags applied by the caller.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consumed by ApplyEnv.
const (
	EnvSecret    = "AUTH_STATE_JSON"
	EnvBaseURL   = "TEST_BASE_URL"
	EnvTimeoutMs = "AUTH_TIMEOUT_MS"
	EnvStatePath = "AUTH_STATE_PATH"
	EnvHeadless  = "HEADLESS"
)

// Defaults
const (
	DefaultBaseURL         = "https://azsqsmsls300.amr.corp.intel.com:4012"
	DefaultLoginPath       = "/sms-dashboard"
	DefaultStatePath       = "auth-state.json"
	DefaultWelcomeSelector = "text=Welcome,"
	DefaultLoginTimeout    = 60 * time.Second
	DefaultArtifactsDir    = "test-results"
)

// Browser engines
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// Config represents the configuration for a bootstrap run
type Config struct {
	// Target application
	TargetBaseURL   string `yaml:"target_base_url" json:"target_base_url"`
	LoginPath       string `yaml:"login_path" json:"login_path"`
	WelcomeSelector string `yaml:"welcome_selector" json:"welcome_selector"`

	// Where the verified storage state is persisted
	StatePath string `yaml:"state_path" json:"state_path"`

	// Pre-serialized storage state injected by CI. Only ever read from the environment.
	Secret string `yaml:"-" json:"-"`

	// Interactive login
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout"`
	Engine       string        `yaml:"engine" json:"engine"`
	Headless     bool          `yaml:"headless" json:"headless"`
	BrowserArgs  []string      `yaml:"browser_args" json:"browser_args"`

	// localStorage key globs that identify authentication entries
	AuthMarkers []string `yaml:"auth_markers" json:"auth_markers"`

	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`
	Logging   LoggingConfig  `yaml:"logging" json:"logging"`
}

// ArtifactConfig defines run summary output
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// DefaultConfig returns the configuration used when nothing else is supplied.
func DefaultConfig() *Config {
	return &Config{
		TargetBaseURL:   DefaultBaseURL,
		LoginPath:       DefaultLoginPath,
		WelcomeSelector: DefaultWelcomeSelector,
		StatePath:       DefaultStatePath,
		LoginTimeout:    DefaultLoginTimeout,
		Engine:          EnginePlaywright,
		Headless:        true,
		BrowserArgs: []string{
			"--ignore-certificate-errors",
			"--ignore-ssl-errors",
		},
		Artifacts: ArtifactConfig{
			Enabled:   false,
			OutputDir: DefaultArtifactsDir,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// LoadFile loads configuration from a YAML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays environment overrides. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvSecret); v != "" {
		c.Secret = v
	}
	if v := getenv(EnvBaseURL); v != "" {
		c.TargetBaseURL = v
	}
	if v := getenv(EnvStatePath); v != "" {
		c.StatePath = v
	}
	if v := getenv(EnvTimeoutMs); v != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeoutMs, v, err)
		}
		c.LoginTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := getenv(EnvHeadless); v != "" {
		c.Headless = !strings.EqualFold(v, "false") && v != "0"
	}
	return nil
}

// Validate validates the configuration and fills in unset optional fields.
func (c *Config) Validate() error {
	if c.TargetBaseURL == "" {
		return fmt.Errorf("target base URL is required")
	}
	u, err := url.Parse(c.TargetBaseURL)
	if err != nil {
		return fmt.Errorf("invalid target base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid target base URL %q: scheme must be http or https", c.TargetBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid target base URL %q: missing host", c.TargetBaseURL)
	}

	if c.StatePath == "" {
		return fmt.Errorf("state path is required")
	}

	if c.LoginTimeout <= 0 {
		return fmt.Errorf("login timeout must be positive")
	}

	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.WelcomeSelector == "" {
		c.WelcomeSelector = DefaultWelcomeSelector
	}

	switch c.Engine {
	case "":
		c.Engine = EnginePlaywright
	case EnginePlaywright, EngineChromedp:
	default:
		return fmt.Errorf("invalid engine: %s (must be '%s' or '%s')", c.Engine, EnginePlaywright, EngineChromedp)
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		c.Artifacts.OutputDir = DefaultArtifactsDir
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// LoginURL is the page the interactive login navigates to.
func (c *Config) LoginURL() string {
	path := c.LoginPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(c.TargetBaseURL, "/") + path
}

// LoginTimeoutMs returns the login timeout in milliseconds, the unit browser drivers take.
func (c *Config) LoginTimeoutMs() float64 {
	return float64(c.LoginTimeout / time.Millisecond)
}
