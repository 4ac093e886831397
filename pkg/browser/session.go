package browser

import (
	"fmt"

	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/entrhq/sms-e2e/pkg/storagestate"
	"github.com/playwright-community/playwright-go"
)

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	_, err := s.Page.Goto(url, playwrightOpts)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.CurrentURL = s.Page.URL()
	return nil
}

// Wait waits for an element to reach the requested state.
func (s *Session) Wait(opts WaitOptions) error {
	if opts.Selector == "" {
		return fmt.Errorf("selector is required for wait")
	}

	playwrightOpts := playwright.PageWaitForSelectorOptions{}

	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	_, err := s.Page.WaitForSelector(opts.Selector, playwrightOpts)
	if err != nil {
		return fmt.Errorf("wait for %q failed: %w", opts.Selector, err)
	}

	return nil
}

// StorageState snapshots the cookies and localStorage of the session's context.
func (s *Session) StorageState() (*storagestate.State, error) {
	raw, err := s.Context.StorageState()
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state: %w", err)
	}
	return fromPlaywrightState(raw)
}

// VerifyAuthenticated reports whether the welcome marker shows on the current
// page. A missing marker is logged as a warning and never fails the caller.
func (s *Session) VerifyAuthenticated(selector string, timeout float64, logger *logging.Logger) bool {
	if selector == "" {
		selector = DefaultWelcomeSelector
	}
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}

	if err := s.Wait(WaitOptions{Selector: selector, State: "visible", Timeout: timeout}); err != nil {
		logger.Warnf("Authentication verification failed on %s, the stored session may need to be refreshed: %v", s.CurrentURL, err)
		return false
	}
	logger.Debugf("Authentication verified on %s", s.CurrentURL)
	return true
}
