package domain

import "errors"

var ErrMissingFields = errors.New("missing required fields")

// Dispatch-internal failure causes. All of these end up as failed delivery
// log entries; none propagate to the dispatch caller.
var (
	ErrNoRecipient      = errors.New("no recipient")
	ErrNoActiveProvider = errors.New("no active provider configured")
)
