package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFeature is wrapped by UnknownFeatureError.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrDuplicateFeature is returned when a name is registered twice.
	ErrDuplicateFeature = errors.New("feature already registered")
	// ErrInvalidDescriptor reports a descriptor that cannot be registered.
	ErrInvalidDescriptor = errors.New("invalid feature descriptor")
	// ErrDependencyCycle reports a cycle in DependsOn.
	ErrDependencyCycle = errors.New("feature dependency cycle")
	// ErrLoaderPanic is the cause recorded when a loader panics.
	ErrLoaderPanic = errors.New("feature loader panicked")
	// ErrPending is returned by Future.Result before the load settles.
	ErrPending = errors.New("feature load pending")
)

// UnknownFeatureError is a programmer error: a name without a registered
// descriptor was requested.
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("unknown feature %q", e.Name)
}

func (e *UnknownFeatureError) Unwrap() error { return ErrUnknownFeature }

// LoadError is delivered to every waiter of a failed load.
type LoadError struct {
	Feature string
	Cause   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load feature %q: %v", e.Feature, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// IsUnknown reports whether err is an unknown feature error.
func IsUnknown(err error) bool { return errors.Is(err, ErrUnknownFeature) }
