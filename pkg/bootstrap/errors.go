package bootstrap

import (
	"errors"

	"github.com/entrhq/sms-e2e/pkg/browser"
)

var (
	// ErrUnavailable marks a strategy that could not produce a session. The
	// chain moves on to the next strategy. Any other error ends the run.
	ErrUnavailable = errors.New("strategy unavailable")

	// ErrSecretWrite means the injected secret was malformed or could not be written.
	ErrSecretWrite = errors.New("secret write failure")

	// ErrCacheParse means the cached state file was unreadable or structurally empty.
	ErrCacheParse = errors.New("cache parse failure")

	// ErrAuthenticationTimeout means the welcome marker never appeared during
	// interactive login. It is fatal.
	ErrAuthenticationTimeout = errors.New("authentication timeout")

	// ErrResourceRelease means the login browser did not shut down cleanly.
	// It is logged and never fails a run.
	ErrResourceRelease = browser.ErrResourceRelease

	// ErrNoSession means every strategy in the chain fell through.
	ErrNoSession = errors.New("no strategy produced a session")
)
