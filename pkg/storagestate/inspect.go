package storagestate

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/publicsuffix"
)

// DefaultAuthMarkers are the localStorage key patterns that identify an
// authenticated dashboard session (MSAL token cache and the app's own keys).
var DefaultAuthMarkers = []string{
	"*msal*",
	"*SMS*",
	"*TOKEN*",
	"*login.windows.net*",
}

// Report summarizes how a state relates to a target application.
type Report struct {
	Target          string         `json:"target"`
	Origins         int            `json:"origins"`
	MatchingOrigins []string       `json:"matching_origins"`
	AuthEntries     map[string]int `json:"auth_entries"`
	Markers         []string       `json:"markers"`
}

// Valid is true when at least one origin on the target's domain carries an
// authentication marker.
func (r *Report) Valid() bool {
	for _, origin := range r.MatchingOrigins {
		if r.AuthEntries[origin] > 0 {
			return true
		}
	}
	return false
}

// HasAuthEntries reports whether any origin, matching or not, carries a marker.
func (r *Report) HasAuthEntries() bool {
	for _, n := range r.AuthEntries {
		if n > 0 {
			return true
		}
	}
	return false
}

// MarkerMatcher matches storage keys against authentication marker globs.
type MarkerMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMarkerMatcher compiles the given patterns. An empty list selects DefaultAuthMarkers.
func NewMarkerMatcher(patterns []string) (*MarkerMatcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultAuthMarkers
	}
	m := &MarkerMatcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid auth marker pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether name looks like an authentication entry.
func (m *MarkerMatcher) Match(name string) bool {
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *MarkerMatcher) Patterns() []string {
	return m.patterns
}

// Inspect compares the state against targetURL. Origins match when they share
// the target's registrable domain (eTLD+1); IP and single-label hosts must
// match exactly.
func (s *State) Inspect(targetURL string, matcher *MarkerMatcher) (*Report, error) {
	target, err := url.Parse(targetURL)
	if err != nil || target.Hostname() == "" {
		return nil, fmt.Errorf("invalid target URL %q", targetURL)
	}
	if matcher == nil {
		if matcher, err = NewMarkerMatcher(nil); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Target:      targetURL,
		AuthEntries: make(map[string]int),
		Markers:     matcher.Patterns(),
	}
	if s == nil {
		return report, nil
	}
	report.Origins = len(s.Origins)

	targetDomain := registrableDomain(target.Hostname())
	for _, o := range s.Origins {
		count := 0
		for _, item := range o.LocalStorage {
			if matcher.Match(item.Name) {
				count++
			}
		}
		report.AuthEntries[o.Origin] = count

		u, err := url.Parse(o.Origin)
		if err != nil || u.Hostname() == "" {
			continue
		}
		if registrableDomain(u.Hostname()) == targetDomain {
			report.MatchingOrigins = append(report.MatchingOrigins, o.Origin)
		}
	}
	return report, nil
}

func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
