package coordinator

import "errors"

var (
	// ErrRestaurantBusy is returned by Create when the restaurant
	// already has an ACTIVE call occupying its slot.
	ErrRestaurantBusy = errors.New("restaurant busy")
	// ErrInvalidTransition is returned when accept or end is
	// attempted from a status that does not permit it (stale
	// client, lost race, already completed).
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrCallNotFound is returned when the referenced call does
	// not exist.
	ErrCallNotFound = errors.New("call not found")
	// ErrRestaurantNotFound is returned when the referenced
	// restaurant does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrUnavailable signals a transient store failure.  It is
	// retryable: no transition is ever partially applied, so the
	// caller can safely try again.
	ErrUnavailable = errors.New("store unavailable")
)
