package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

const loginSessionName = "bootstrap-login"

// PlaywrightEngine captures logins with a dedicated SessionManager per run.
type PlaywrightEngine struct {
	logger *logging.Logger
}

// NewPlaywrightEngine creates the default engine.
func NewPlaywrightEngine(logger *logging.Logger) *PlaywrightEngine {
	return &PlaywrightEngine{logger: logger.With("playwright")}
}

// Name returns "playwright".
func (e *PlaywrightEngine) Name() string {
	return EnginePlaywright
}

// CaptureLogin implements Engine.
func (e *PlaywrightEngine) CaptureLogin(ctx context.Context, opts LoginOptions) (capture *Capture, err error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manager := NewSessionManager()
	manager.SetMaxSessions(1)
	defer func() {
		relErr := releaseError(manager.Shutdown())
		if relErr == nil {
			return
		}
		e.logger.Warnf("Release failed: %v", relErr)
		if err != nil {
			err = errors.Join(err, relErr)
		} else {
			capture.ReleaseErr = relErr
		}
	}()

	// Playwright calls do not take a context; closing the browser unblocks them.
	stop := context.AfterFunc(ctx, func() {
		e.logger.Warnf("Run cancelled, closing browser")
		_ = manager.Shutdown()
	})
	defer stop()

	e.logger.Debugf("Starting Playwright driver")
	if err := manager.Initialize(); err != nil {
		return nil, err
	}

	session, err := manager.StartSession(loginSessionName, SessionOptions{
		Headless:          opts.Headless,
		IgnoreHTTPSErrors: opts.IgnoreHTTPSErrors,
		Args:              opts.Args,
		Timeout:           durationMs(opts.Timeout),
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("login aborted: %w", err)
	}

	deadline := time.Now().Add(opts.Timeout)
	e.logger.Infof("Navigating to %s (headless=%t)", opts.URL, opts.Headless)
	if err := session.Navigate(opts.URL, NavigateOptions{
		WaitUntil: "networkidle",
		Timeout:   durationMs(opts.Timeout),
	}); err != nil {
		return nil, e.classify(ctx, err, ErrNavigation)
	}

	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	e.logger.Infof("Waiting up to %s for %q", remaining.Round(time.Millisecond), opts.WelcomeSelector)
	if err := session.Wait(WaitOptions{
		Selector: opts.WelcomeSelector,
		State:    "visible",
		Timeout:  durationMs(remaining),
	}); err != nil {
		return nil, e.classify(ctx, err, ErrMarkerTimeout)
	}

	state, err := session.StorageState()
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Captured storage state: %d cookies, %d origins", len(state.Cookies), len(state.Origins))

	return &Capture{State: state}, nil
}

// classify maps a driver error to a sentinel. Timeouts are always marker
// timeouts: the page never reached the signed-in state in time.
func (e *PlaywrightEngine) classify(ctx context.Context, err, fallback error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("login aborted: %w", ctxErr)
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrMarkerTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func durationMs(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
