package models

import "errors"

// Configuration errors raised at validate/save time, never mid-sync.
var (
	// ErrConfigInvalid marks a connection that fails structural validation
	// or combines a database source with an unsafe mode.
	ErrConfigInvalid = errors.New("invalid connection configuration")

	// ErrScheduleMisconfigured marks an autosync schedule with an invalid
	// time or weekday set.
	ErrScheduleMisconfigured = errors.New("misconfigured schedule")
)
