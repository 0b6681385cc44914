// Package services defines the business logic of the outreach campaign: the
// contact store, timing policy, eligibility resolver, batch scheduler and
// reply bridge. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Contact-related errors.
var (
	// ErrEmailRequired is returned when a contact is added without an email
	// address.
	ErrEmailRequired = errors.New("email is required")

	// ErrContactNotFound indicates that no contact matches the given ID or
	// address.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidTransition is returned when a send is recorded for a message
	// the contact is not due for (out of order, repeated, or after a reply).
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrInvalidStatus is returned when a status filter names an unknown
	// lifecycle status.
	ErrInvalidStatus = errors.New("invalid contact status")
)

// Dispatch-related errors.
var (
	// ErrTransportUnavailable marks connectivity or setup failures of the
	// message transport. Transports wrap it; the scheduler aborts the run
	// when it sees it instead of counting a per-contact failure.
	ErrTransportUnavailable = errors.New("message transport unavailable")
)
