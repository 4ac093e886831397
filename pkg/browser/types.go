package browser

import (
	"time"

	"github.com/entrhq/sms-e2e/pkg/storagestate"
	"github.com/playwright-community/playwright-go"
)

// Session represents an open Playwright browser with one context and page.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the isolated browser context
	Context playwright.BrowserContext

	// Page is the active page
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// CurrentURL is the URL of the current page
	CurrentURL string
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// IgnoreHTTPSErrors accepts self-issued or untrusted certificates
	IgnoreHTTPSErrors bool

	// Args are extra Chromium command-line switches
	Args []string

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for page operations (in milliseconds)
	Timeout float64

	// StorageState preloads cookies and localStorage into the context.
	// Nil starts from an empty profile.
	StorageState *storagestate.State
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// Selector to wait for
	Selector string

	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout in milliseconds
	Timeout float64
}

// Default values for various operations
const (
	DefaultTimeout         = 30000.0 // 30 seconds in milliseconds
	DefaultVerifyTimeout   = 10000.0
	DefaultViewportWidth   = 1280
	DefaultViewportHeight  = 720
	DefaultMaxSessions     = 5
	DefaultWelcomeSelector = "text=Welcome,"
)
