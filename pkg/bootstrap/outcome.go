package bootstrap

import (
	"fmt"
	"time"
)

// Source identifies where a session came from.
type Source string

const (
	SourceSecret           Source = "secret"
	SourceCache            Source = "cache"
	SourceInteractiveLogin Source = "interactive_login"
	SourceFailed           Source = "failed"
)

// Outcome is the result of one EnsureSession call.
type Outcome struct {
	Source    Source        `json:"source"`
	Reason    string        `json:"reason,omitempty"`
	StatePath string        `json:"state_path"`
	Duration  time.Duration `json:"duration_ns"`
}

// Failed reports whether no session was established.
func (o *Outcome) Failed() bool {
	return o == nil || o.Source == SourceFailed
}

func (o *Outcome) String() string {
	if o.Failed() {
		reason := "unknown"
		if o != nil && o.Reason != "" {
			reason = o.Reason
		}
		return fmt.Sprintf("failed(%s)", reason)
	}
	return fmt.Sprintf("sourced from %s (%s)", o.Source, o.StatePath)
}
