// Package bootstrap establishes the authenticated dashboard session that test
// workers share.
//
// EnsureSession walks an ordered list of strategies: an injected secret, the
// state file from an earlier run, then an interactive browser login. The
// first strategy that produces a state wins and the state is persisted to the
// configured path. Secret and cache problems fall through to the next
// strategy. An interactive login whose welcome marker never appears is fatal.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/sms-e2e/pkg/browser"
	"github.com/entrhq/sms-e2e/pkg/config"
	"github.com/entrhq/sms-e2e/pkg/logging"
	"github.com/entrhq/sms-e2e/pkg/storagestate"
)

// Options configures a Bootstrapper.
type Options struct {
	Config *config.Config

	// Engine performs the interactive login. Required unless Strategies is set.
	Engine browser.Engine

	// Strategies overrides DefaultStrategies.
	Strategies []Strategy

	Console *logging.Console
	Logger  *logging.Logger
}

// Bootstrapper runs the strategy chain.
type Bootstrapper struct {
	cfg        *config.Config
	strategies []Strategy
	matcher    *storagestate.MarkerMatcher
	console    *logging.Console
	logger     *logging.Logger
	artifacts  *ArtifactWriter
}

// New creates a Bootstrapper. The config must already be validated.
func New(opts Options) (*Bootstrapper, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	matcher, err := storagestate.NewMarkerMatcher(opts.Config.AuthMarkers)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.With("bootstrap")
	strategies := opts.Strategies
	if len(strategies) == 0 {
		if opts.Engine == nil {
			return nil, fmt.Errorf("browser engine is required")
		}
		strategies = DefaultStrategies(opts.Config, opts.Engine, opts.Console, logger)
	}

	b := &Bootstrapper{
		cfg:        opts.Config,
		strategies: strategies,
		matcher:    matcher,
		console:    opts.Console,
		logger:     logger,
	}
	if opts.Config.Artifacts.Enabled {
		b.artifacts = NewArtifactWriter(opts.Config.Artifacts.OutputDir)
	}
	return b, nil
}

// EnsureSession returns exactly one outcome. On success the state file exists
// at the configured path and the returned state is what it holds, so callers
// can hand it to workers directly. The error is non-nil only for a failed
// outcome.
func (b *Bootstrapper) EnsureSession(ctx context.Context) (*Outcome, *storagestate.State, error) {
	start := time.Now()
	summary := &Summary{
		RunID:     logging.GetRunID(),
		StartTime: start,
	}

	b.console.Header("SMS session bootstrap")
	b.console.Verbosef("State file: %s", b.cfg.StatePath)
	b.console.Verbosef("Target: %s", b.cfg.TargetBaseURL)
	b.logger.Infof("Bootstrap started: state=%s target=%s", b.cfg.StatePath, b.cfg.TargetBaseURL)

	for _, strategy := range b.strategies {
		b.console.Step(fmt.Sprintf("Trying %s", strategy.Name()))
		b.logger.Debugf("Attempting strategy %s", strategy.Name())

		state, err := strategy.Attempt(ctx)
		if err == nil {
			outcome := &Outcome{
				Source:    strategy.Source(),
				StatePath: b.cfg.StatePath,
				Duration:  time.Since(start),
			}
			summary.Attempts = append(summary.Attempts, Attempt{Strategy: strategy.Name(), Result: ResultSucceeded})
			summary.Inspection = b.inspect(state)

			b.console.Successf("Session %s in %s", outcome, outcome.Duration.Round(time.Millisecond))
			b.logger.Infof("Bootstrap succeeded: %s", outcome)
			b.finish(summary, outcome)
			return outcome, state, nil
		}

		if errors.Is(err, ErrUnavailable) {
			summary.Attempts = append(summary.Attempts, Attempt{Strategy: strategy.Name(), Result: ResultSkipped, Error: err.Error()})
			if errors.Is(err, ErrSecretWrite) || errors.Is(err, ErrCacheParse) {
				b.console.Warningf("%s unusable, falling back: %v", strategy.Name(), err)
			} else {
				b.console.Infof("Skipped: %v", err)
			}
			b.logger.Infof("Strategy %s fell through: %v", strategy.Name(), err)
			continue
		}

		summary.Attempts = append(summary.Attempts, Attempt{Strategy: strategy.Name(), Result: ResultFailed, Error: err.Error()})
		return b.fail(summary, start, err)
	}

	return b.fail(summary, start, ErrNoSession)
}

func (b *Bootstrapper) fail(summary *Summary, start time.Time, err error) (*Outcome, *storagestate.State, error) {
	outcome := &Outcome{
		Source:    SourceFailed,
		Reason:    err.Error(),
		StatePath: b.cfg.StatePath,
		Duration:  time.Since(start),
	}
	b.console.Errorf("%v", err)
	if errors.Is(err, ErrAuthenticationTimeout) {
		b.console.Infof("Sign in within %s or raise %s", b.cfg.LoginTimeout, config.EnvTimeoutMs)
	}
	b.logger.Errorf("Bootstrap failed: %v", err)
	b.finish(summary, outcome)
	return outcome, nil, err
}

// inspect narrates how the state relates to the target. It never changes the outcome.
func (b *Bootstrapper) inspect(state *storagestate.State) *storagestate.Report {
	report, err := state.Inspect(b.cfg.TargetBaseURL, b.matcher)
	if err != nil {
		b.logger.Warnf("Inspection skipped: %v", err)
		return nil
	}

	b.console.Verbosef("Origins: %d, matching target: %v", report.Origins, report.MatchingOrigins)
	for origin, n := range report.AuthEntries {
		b.console.Debugf("%s: %d auth entries", origin, n)
	}
	switch {
	case report.Valid():
	case report.HasAuthEntries():
		b.console.Warningf("Auth entries found, but not on an origin matching %s", b.cfg.TargetBaseURL)
	default:
		b.console.Warningf("No auth entries (%v) in state; pages may show the login screen", report.Markers)
	}
	b.logger.Infof("Inspection: origins=%d matching=%d valid=%t", report.Origins, len(report.MatchingOrigins), report.Valid())
	return report
}

func (b *Bootstrapper) finish(summary *Summary, outcome *Outcome) {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime).String()
	summary.Outcome = outcome

	if b.artifacts == nil {
		return
	}
	path, err := b.artifacts.WriteSummary(summary)
	if err != nil {
		b.console.Warningf("Failed to write run summary: %v", err)
		b.logger.Warnf("Failed to write run summary: %v", err)
		return
	}
	b.console.Verbosef("Run summary: %s", path)
}
