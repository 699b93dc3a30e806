package failover

import "errors"

var (
	// ErrNotConfigured is returned when a chain has no usable endpoint.
	ErrNotConfigured = errors.New("RPC URL not configured")

	// ErrClosed is returned by operations on a manager that was shut down.
	ErrClosed = errors.New("failover manager closed")
)
