package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrEmptyRoute is returned for route messages without a route.
	ErrEmptyRoute = errors.New("mqtt: empty route")
)
