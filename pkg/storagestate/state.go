// Package storagestate models the browser storage snapshot that proves a prior
// successful login to the SMS dashboard.
//
// The on-disk shape is the one Playwright writes from BrowserContext.StorageState
// and reads back as initial context storage:
//
//	{
//	  "cookies": [ ... ],
//	  "origins": [
//	    {"origin": "https://host:4012", "localStorage": [{"name": "...", "value": "..."}]}
//	  ]
//	}
//
// A State is write-once: it is created by decoding a secret, reading a cached
// file, or capturing a live login, and is never mutated afterwards.
package storagestate

import (
	"errors"
)

// ErrNoOrigins is returned by Validate when a state carries no origin entries.
var ErrNoOrigins = errors.New("storage state has no origins")

// State is a serialized snapshot of browser storage keyed by origin.
type State struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

// Cookie is a browser cookie as Playwright serializes it.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Origin holds the localStorage entries of a single origin, in page order.
type Origin struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

// NameValue is a single storage entry.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Validate reports whether the state is structurally usable, meaning it has at
// least one origin. It does not look at token freshness.
func (s *State) Validate() error {
	if s == nil || len(s.Origins) == 0 {
		return ErrNoOrigins
	}
	return nil
}

// OriginNames returns the origin URLs in file order.
func (s *State) OriginNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Origins))
	for _, o := range s.Origins {
		names = append(names, o.Origin)
	}
	return names
}

// Lookup returns the localStorage value stored under name for origin.
func (s *State) Lookup(origin, name string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, o := range s.Origins {
		if o.Origin != origin {
			continue
		}
		for _, item := range o.LocalStorage {
			if item.Name == name {
				return item.Value, true
			}
		}
	}
	return "", false
}
