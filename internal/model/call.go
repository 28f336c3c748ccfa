package model

import "time"

// Call statuses.  A call only ever moves forward through
// PENDING -> ACTIVE -> COMPLETED; it never regresses.  A pending
// call may also jump straight to COMPLETED when it is superseded
// by a rival accept or expired by the sweeper.
const (
	CallPending   = "PENDING"
	CallActive    = "ACTIVE"
	CallCompleted = "COMPLETED"
)

// Outcomes recorded when a call reaches COMPLETED.  They let the
// kiosk and the dashboard distinguish a normally ended call from
// one that was closed out from under its caller.
const (
	OutcomeEnded      = "ended"      // staff ended an active call
	OutcomeSuperseded = "superseded" // rival pending call won the accept
	OutcomeExpired    = "expired"    // pending call aged out unaccepted
)

// Call represents one request for staff attention placed by a
// kiosk screen against a single restaurant.  It mirrors the
// `calls` table.  JSON tags are included because calls are the
// payload of the polling wire contract and are serialized as-is.
//
// Revision starts at 1 and is bumped on every state transition.
// Pollers compare revisions to discard out-of-order snapshots, so
// it must never be reset or reused.
type Call struct {
	ID           string     `json:"id"`                     // calls.id (uuid, never reused)
	RestaurantID uint64     `json:"restaurant_id"`          // calls.restaurant_id
	OriginID     uint64     `json:"origin_id"`              // calls.origin_id (kiosk screen)
	ScreenName   string     `json:"screen_name,omitempty"`  // joined from screens, display only
	Status       string     `json:"status"`                 // calls.status
	Outcome      *string    `json:"outcome,omitempty"`      // calls.outcome (null until COMPLETED)
	AcceptedBy   *uint64    `json:"accepted_by,omitempty"`  // calls.accepted_by (staff attribution)
	Revision     uint64     `json:"revision"`               // calls.revision
	CreatedAt    time.Time  `json:"created_at"`             // calls.created_at
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`  // calls.accepted_at (null until ACTIVE)
	CompletedAt  *time.Time `json:"completed_at,omitempty"` // calls.completed_at (null until COMPLETED)
}

// Terminal reports whether the call can no longer transition.
func (c *Call) Terminal() bool { return c.Status == CallCompleted }
