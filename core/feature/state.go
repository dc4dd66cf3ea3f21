package feature

import "fmt"

// State is the lifecycle position of a feature.
//
//	Unregistered -> Queued -> Loading -> Loaded
//	                          Loading -> Failed -> (Reset) Unregistered
type State int

const (
	Unregistered State = iota
	Queued
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Queued:
		return "queued"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for v := Unregistered; v <= Failed; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown feature state %q", string(b))
}
