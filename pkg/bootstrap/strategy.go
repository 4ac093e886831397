package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/sms-e2e/pkg/browser"
	"github.com/entrhq/sms-e2e/pkg/config"
	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/entrhq/sms-e2e/pkg/storagestate"
)

// Strategy is one way of obtaining a session.
type Strategy interface {
	// Name is a short label used in narration and the run summary.
	Name() string

	// Source is reported in the Outcome when the strategy succeeds.
	Source() Source

	// Attempt returns a state that has been persisted to the state file.
	// Errors wrapping ErrUnavailable let the next strategy run.
	Attempt(ctx context.Context) (*storagestate.State, error)
}

// DefaultStrategies returns the secret, cache, interactive login chain.
func DefaultStrategies(cfg *config.Config, engine browser.Engine, console *logging.Console, logger *logging.Logger) []Strategy {
	return []Strategy{
		&SecretStrategy{
			Secret:  cfg.Secret,
			Path:    cfg.StatePath,
			Console: console,
			Logger:  logger.With("secret"),
		},
		&CacheStrategy{
			Path:    cfg.StatePath,
			Console: console,
			Logger:  logger.With("cache"),
		},
		&InteractiveStrategy{
			Engine: engine,
			Login: browser.LoginOptions{
				URL:               cfg.LoginURL(),
				WelcomeSelector:   cfg.WelcomeSelector,
				Timeout:           cfg.LoginTimeout,
				Headless:          cfg.Headless,
				IgnoreHTTPSErrors: true,
				Args:              cfg.BrowserArgs,
			},
			Path:    cfg.StatePath,
			Console: console,
			Logger:  logger.With("interactive"),
		},
	}
}

// SecretStrategy writes a CI-injected state to the state file.
type SecretStrategy struct {
	Secret  string
	Path    string
	Console *logging.Console
	Logger  *logging.Logger
}

func (s *SecretStrategy) Name() string   { return "secret" }
func (s *SecretStrategy) Source() Source { return SourceSecret }

// Attempt writes the secret byte-for-byte. The secret is decoded and
// validated first so a secret that could not be reused never replaces a
// usable cache file.
func (s *SecretStrategy) Attempt(ctx context.Context) (*storagestate.State, error) {
	if s.Secret == "" {
		return nil, fmt.Errorf("%w: no secret provided", ErrUnavailable)
	}
	s.Console.Verbosef("Secret provided (%d bytes)", len(s.Secret))

	state, err := storagestate.Parse([]byte(s.Secret))
	if err != nil {
		s.Logger.Warnf("Secret rejected: %v", err)
		return nil, fmt.Errorf("%w: %w: %v", ErrUnavailable, ErrSecretWrite, err)
	}
	if err := state.Validate(); err != nil {
		s.Logger.Warnf("Secret rejected: %v", err)
		return nil, fmt.Errorf("%w: %w: %v", ErrUnavailable, ErrSecretWrite, err)
	}

	if err := storagestate.WriteRaw(s.Path, []byte(s.Secret)); err != nil {
		s.Logger.Errorf("Secret write failed: %v", err)
		return nil, fmt.Errorf("%w: %w: %v", ErrUnavailable, ErrSecretWrite, err)
	}
	s.Logger.Infof("Secret written to %s", s.Path)
	return state, nil
}

// CacheStrategy reuses the state file left by an earlier run. Freshness is
// not checked.
type CacheStrategy struct {
	Path    string
	Console *logging.Console
	Logger  *logging.Logger
}

func (c *CacheStrategy) Name() string   { return "cache" }
func (c *CacheStrategy) Source() Source { return SourceCache }

// Attempt loads the state file. It never writes.
func (c *CacheStrategy) Attempt(ctx context.Context) (*storagestate.State, error) {
	if !storagestate.Exists(c.Path) {
		return nil, fmt.Errorf("%w: no cached state at %s", ErrUnavailable, c.Path)
	}

	state, err := storagestate.Load(c.Path)
	if err != nil {
		c.Logger.Warnf("Cache rejected: %v", err)
		return nil, fmt.Errorf("%w: %w: %v", ErrUnavailable, ErrCacheParse, err)
	}
	if err := state.Validate(); err != nil {
		c.Logger.Warnf("Cache rejected: %v", err)
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrUnavailable, ErrCacheParse, c.Path, err)
	}

	c.Console.Verbosef("Cached state has %d origins: %v", len(state.Origins), state.OriginNames())
	c.Logger.Infof("Using cached state %s", c.Path)
	return state, nil
}

// InteractiveStrategy signs in through a real browser and persists the result.
type InteractiveStrategy struct {
	Engine  browser.Engine
	Login   browser.LoginOptions
	Path    string
	Console *logging.Console
	Logger  *logging.Logger
}

func (i *InteractiveStrategy) Name() string   { return "interactive login" }
func (i *InteractiveStrategy) Source() Source { return SourceInteractiveLogin }

// Attempt runs the login. Failures are fatal.
func (i *InteractiveStrategy) Attempt(ctx context.Context) (*storagestate.State, error) {
	if i.Engine == nil {
		return nil, fmt.Errorf("interactive login: no browser engine configured")
	}

	i.Console.Infof("Opening %s with %s, waiting up to %s for %q",
		i.Login.URL, i.Engine.Name(), i.Login.Timeout, i.Login.WelcomeSelector)
	if i.Login.Headless {
		i.Console.Verbosef("Browser is headless; sign-in must complete without interaction")
	} else {
		i.Console.Infof("Complete the sign-in in the browser window")
	}

	capture, err := i.Engine.CaptureLogin(ctx, i.Login)
	if err != nil {
		if errors.Is(err, ErrResourceRelease) {
			i.Console.Warningf("Browser did not shut down cleanly")
		}
		if errors.Is(err, browser.ErrMarkerTimeout) {
			i.Logger.Errorf("Welcome marker not visible within %s: %v", i.Login.Timeout, err)
			return nil, fmt.Errorf("%w: welcome marker %q not visible within %s: %w",
				ErrAuthenticationTimeout, i.Login.WelcomeSelector, i.Login.Timeout, err)
		}
		i.Logger.Errorf("Interactive login failed: %v", err)
		return nil, fmt.Errorf("interactive login failed: %w", err)
	}

	if capture.ReleaseErr != nil {
		i.Console.Warningf("Browser did not shut down cleanly: %v", capture.ReleaseErr)
		i.Logger.Warnf("Release failed after login: %v", capture.ReleaseErr)
	}

	state := capture.State
	if state == nil {
		state = &storagestate.State{}
	}
	if err := state.Validate(); err != nil {
		i.Logger.Errorf("Captured state rejected: %v", err)
		return nil, fmt.Errorf("interactive login captured an unusable state: %w", err)
	}

	if err := storagestate.Save(i.Path, state); err != nil {
		return nil, fmt.Errorf("failed to persist captured state: %w", err)
	}
	i.Logger.Infof("Captured state written to %s", i.Path)
	return state, nil
}
