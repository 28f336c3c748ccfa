// Package queue defines message payloads exchanged over the message broker.
package queue

// Lifecycle event types published on the call.lifecycle queue.
const (
	EventCallCreated    = "call.created"
	EventCallAccepted   = "call.accepted"
	EventCallEnded      = "call.ended"
	EventCallSuperseded = "call.superseded"
	EventCallExpired    = "call.expired"
)

// CallLifecycleEvent is published whenever a call transitions.  It
// carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type CallLifecycleEvent struct {
	Type         string  `json:"type"`
	CallID       string  `json:"call_id"`
	RestaurantID uint64  `json:"restaurant_id"`
	OriginID     uint64  `json:"origin_id"`
	ScreenName   string  `json:"screen_name,omitempty"`
	Status       string  `json:"status"`
	Outcome      string  `json:"outcome,omitempty"`
	ActorID      *uint64 `json:"actor_id,omitempty"`
	Revision     uint64  `json:"revision"`
	OccurredAt   string  `json:"occurred_at"`
}
