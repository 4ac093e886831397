package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/entrhq/sms-e2e/pkg/storagestate"
)

var (
	// ErrMarkerTimeout means the welcome marker did not appear before the login timeout.
	ErrMarkerTimeout = errors.New("authentication marker not visible before timeout")

	// ErrNavigation means the login page could not be reached at all.
	ErrNavigation = errors.New("login page navigation failed")

	// ErrResourceRelease means a browser, context or driver did not shut down cleanly.
	ErrResourceRelease = errors.New("browser resources not released")
)

// Engine names accepted by NewEngine.
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// LoginOptions configures one interactive login.
type LoginOptions struct {
	// URL is the page that shows the welcome marker once signed in
	URL string

	// WelcomeSelector identifies the signed-in marker, e.g. "text=Welcome,"
	WelcomeSelector string

	// Timeout bounds navigation plus the wait for the marker
	Timeout time.Duration

	// Headless hides the browser window. Interactive sign-in needs it false.
	Headless bool

	// IgnoreHTTPSErrors accepts the dashboard's internal certificate
	IgnoreHTTPSErrors bool

	// Args are extra Chromium switches such as "--ignore-certificate-errors"
	Args []string
}

func (o LoginOptions) withDefaults() LoginOptions {
	if o.WelcomeSelector == "" {
		o.WelcomeSelector = DefaultWelcomeSelector
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeout) * time.Millisecond
	}
	return o
}

// Capture is the result of a successful interactive login.
type Capture struct {
	// State holds the cookies and localStorage of the signed-in browser
	State *storagestate.State

	// ReleaseErr is set when the browser could not be shut down cleanly.
	// It wraps ErrResourceRelease and does not invalidate State.
	ReleaseErr error
}

// Engine drives a real browser through the dashboard login.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// CaptureLogin opens a browser at opts.URL, waits for the welcome marker
	// and returns the signed-in storage state. Browser resources are released
	// on every path. A marker that never shows yields an error wrapping
	// ErrMarkerTimeout.
	CaptureLogin(ctx context.Context, opts LoginOptions) (*Capture, error)
}

// NewEngine returns the engine registered under name.
func NewEngine(name string, logger *logging.Logger) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EnginePlaywright:
		return NewPlaywrightEngine(logger), nil
	case EngineChromedp:
		return NewChromedpEngine(logger), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", name)
	}
}

func releaseError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrResourceRelease, err)
}
