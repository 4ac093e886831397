// Package browser drives real browsers for the dashboard login and for the
// test workers that reuse its session.
//
// # Engines
//
// An Engine performs one interactive login and returns the signed-in storage
// state:
//
//   - PlaywrightEngine (default) launches Chromium through the Playwright driver
//   - ChromedpEngine talks to a local Chrome over the DevTools protocol
//
// Both ignore certificate errors, navigate to the login URL, wait for the
// welcome marker and release the browser on every exit path. A marker that
// never shows is reported as ErrMarkerTimeout. Release problems are reported
// separately as ErrResourceRelease and do not discard a captured state.
//
// # Worker Sessions
//
// Workers receive the state explicitly:
//
//	manager := browser.NewSessionManager()
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.StartSession("worker-1", browser.SessionOptions{
//	    Headless:          true,
//	    IgnoreHTTPSErrors: true,
//	    StorageState:      state,
//	})
//	err = session.Navigate(dashboardURL, browser.NavigateOptions{WaitUntil: "networkidle"})
//	if !session.VerifyAuthenticated("", 0, logger) {
//	    // warned, continue
//	}
//
// Suites that manage their own Playwright contexts can use
// WorkerContextOptions instead.
package browser
