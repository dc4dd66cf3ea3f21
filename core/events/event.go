package events

import (
	"fmt"
	"time"
)

// Kind identifies the type of a loading event.
type Kind int

const (
	Queued Kind = iota + 1
	LoadStarted
	Loaded
	LoadFailed
	PreloadFailed
	RouteNotified
	RetryRequested
	RetrySucceeded
)

var kindNames = map[Kind]string{
	Queued:         "feature_queued",
	LoadStarted:    "feature_loading_started",
	Loaded:         "feature_loaded",
	LoadFailed:     "feature_load_failed",
	PreloadFailed:  "feature_preload_failed",
	RouteNotified:  "route_notified",
	RetryRequested: "feature_retry_requested",
	RetrySucceeded: "feature_retry_succeeded",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown event kind %q", string(b))
	}
	*k = v
	return nil
}

// Event is a single observation. Attempt correlates LoadStarted with the
// Loaded/LoadFailed event of the same loader invocation.
type Event struct {
	Kind     Kind          `json:"kind"`
	Feature  string        `json:"feature,omitempty"`
	Route    string        `json:"route,omitempty"`
	Attempt  string        `json:"attempt,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Time     time.Time     `json:"time"`
}

// Fields returns the event as structured log fields.
func (e Event) Fields() map[string]any {
	f := map[string]any{"event": e.Kind.String()}
	if e.Feature != "" {
		f["feature"] = e.Feature
	}
	if e.Route != "" {
		f["route"] = e.Route
	}
	if e.Attempt != "" {
		f["attempt"] = e.Attempt
	}
	if e.Err != nil {
		f["error"] = e.Err
	} else if e.Error != "" {
		f["error"] = e.Error
	}
	if e.Duration > 0 {
		f["duration"] = e.Duration
	}
	return f
}
