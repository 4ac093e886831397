package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domstorage"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/entrhq/sms-e2e/pkg/storagestate"
)

// ChromedpEngine captures logins over the DevTools protocol without the
// Playwright driver. It needs a local Chrome or Chromium.
type ChromedpEngine struct {
	logger *logging.Logger
}

// NewChromedpEngine creates the chromedp engine.
func NewChromedpEngine(logger *logging.Logger) *ChromedpEngine {
	return &ChromedpEngine{logger: logger.With("chromedp")}
}

// Name returns "chromedp".
func (e *ChromedpEngine) Name() string {
	return EngineChromedp
}

// CaptureLogin implements Engine.
func (e *ChromedpEngine) CaptureLogin(ctx context.Context, opts LoginOptions) (capture *Capture, err error) {
	opts = opts.withDefaults()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	defer func() {
		cancelErr := chromedp.Cancel(browserCtx)
		if cancelErr == nil || errors.Is(cancelErr, context.Canceled) {
			return
		}
		relErr := releaseError(cancelErr)
		e.logger.Warnf("Release failed: %v", relErr)
		if err != nil {
			err = errors.Join(err, relErr)
		} else {
			capture.ReleaseErr = relErr
		}
	}()

	// Start the browser on the long-lived context so the login timeout
	// below cannot tear it down.
	e.logger.Debugf("Starting browser")
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	// Redirects through an identity provider leave tokens on origins the
	// final page no longer shows.
	visited := &originSet{}
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if nav, ok := ev.(*page.EventFrameNavigated); ok && nav.Frame != nil {
			visited.add(nav.Frame.SecurityOrigin)
		}
	})

	loginCtx, cancelLogin := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelLogin()

	e.logger.Infof("Navigating to %s (headless=%t)", opts.URL, opts.Headless)
	if err := chromedp.Run(loginCtx, chromedp.Navigate(opts.URL)); err != nil {
		return nil, e.classify(ctx, loginCtx, err, ErrNavigation)
	}

	sel, by := markerQuery(opts.WelcomeSelector)
	e.logger.Infof("Waiting for %q", opts.WelcomeSelector)
	if err := chromedp.Run(loginCtx, chromedp.WaitVisible(sel, by)); err != nil {
		return nil, e.classify(ctx, loginCtx, err, ErrMarkerTimeout)
	}

	state, err := e.snapshot(browserCtx, visited)
	if err != nil {
		return nil, err
	}
	e.logger.Infof("Captured storage state: %d cookies, %d origins", len(state.Cookies), len(state.Origins))

	return &Capture{State: state}, nil
}

// snapshot reads every cookie in the browser and the localStorage of each
// origin seen during the login, including frames still open on the page.
func (e *ChromedpEngine) snapshot(ctx context.Context, visited *originSet) (*storagestate.State, error) {
	var cookies []*network.Cookie
	state := &storagestate.State{}

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			visited.addTree(tree)
			return domstorage.Enable().Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, origin := range visited.list() {
				items, err := domstorage.GetDOMStorageItems(&domstorage.StorageID{
					SecurityOrigin: origin,
					IsLocalStorage: true,
				}).Do(ctx)
				if err != nil {
					e.logger.Debugf("No localStorage for %s: %v", origin, err)
					continue
				}
				if o, ok := originEntries(origin, items); ok {
					state.Origins = append(state.Origins, o)
				}
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state: %w", err)
	}

	state.Cookies = make([]storagestate.Cookie, 0, len(cookies))
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, storagestate.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	e.logger.Debugf("Origins seen during login: %v", visited.list())
	return state, nil
}

// originEntries converts DOMStorage items. Origins with nothing stored are
// skipped, as Playwright does.
func originEntries(origin string, items []domstorage.Item) (storagestate.Origin, bool) {
	o := storagestate.Origin{Origin: origin, LocalStorage: make([]storagestate.NameValue, 0, len(items))}
	for _, kv := range items {
		if len(kv) != 2 {
			continue
		}
		o.LocalStorage = append(o.LocalStorage, storagestate.NameValue{Name: kv[0], Value: kv[1]})
	}
	return o, len(o.LocalStorage) > 0
}

// originSet records web origins in first-seen order. It is written from the
// target event goroutine.
type originSet struct {
	mu      sync.Mutex
	origins []string
}

func (s *originSet) add(origin string) {
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.origins {
		if o == origin {
			return
		}
	}
	s.origins = append(s.origins, origin)
}

func (s *originSet) addTree(tree *page.FrameTree) {
	if tree == nil {
		return
	}
	s.addFrame(tree.Frame)
	for _, child := range tree.ChildFrames {
		s.addTree(child)
	}
}

func (s *originSet) addFrame(frame *cdp.Frame) {
	if frame != nil {
		s.add(frame.SecurityOrigin)
	}
}

func (s *originSet) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.origins...)
}

func (e *ChromedpEngine) classify(parent, loginCtx context.Context, err, fallback error) error {
	if ctxErr := parent.Err(); ctxErr != nil {
		return fmt.Errorf("login aborted: %w", ctxErr)
	}
	if errors.Is(loginCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrMarkerTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func allocatorOptions(opts LoginOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.IgnoreHTTPSErrors {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range opts.Args {
		name, value := splitSwitch(arg)
		if name == "" {
			continue
		}
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	return allocOpts
}

// splitSwitch turns "--name=value" into ("name", "value") and "--name" into ("name", true).
func splitSwitch(arg string) (string, interface{}) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// markerQuery translates a Playwright-style selector. "text=" becomes an
// XPath text search, "xpath=" and "//" are XPath, anything else is CSS.
func markerQuery(selector string) (string, chromedp.QueryOption) {
	switch {
	case strings.HasPrefix(selector, "text="):
		text := strings.Trim(strings.TrimPrefix(selector, "text="), `"'`)
		return fmt.Sprintf(`//*[contains(text(), %s)]`, xpathLiteral(text)), chromedp.BySearch
	case strings.HasPrefix(selector, "xpath="):
		return strings.TrimPrefix(selector, "xpath="), chromedp.BySearch
	case strings.HasPrefix(selector, "//"):
		return selector, chromedp.BySearch
	default:
		return selector, chromedp.ByQuery
	}
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
