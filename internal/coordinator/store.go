package coordinator

import (
	"context"
	"time"

	"github.com/kioskconnect/backend/internal/model"
)

// Store is the persistence contract the coordinator drives.  Each
// mutating method must apply its whole transition atomically: the
// status change, its timestamps, the revision bump, and any
// restaurant status flip either all land or none do.  Methods
// must also re-verify the call's status under their own
// transaction and return ErrInvalidTransition when the state no
// longer permits the transition, so that concurrent coordinator
// processes sharing one database stay consistent.
//
// The production implementation is the MySQL repository layer;
// memstore provides an in-memory implementation for tests.
type Store interface {
	// CreateCall persists a new PENDING call.  The call carries
	// its ID, revision 1 and CreatedAt already populated.
	CreateCall(ctx context.Context, c *model.Call) error
	// GetCall returns the call or ErrCallNotFound.
	GetCall(ctx context.Context, id string) (model.Call, error)
	// ListCalls returns every call for the restaurant, newest first.
	ListCalls(ctx context.Context, restaurantID uint64) ([]model.Call, error)
	// AcceptCall transitions the call PENDING -> ACTIVE, flips the
	// restaurant busy, and completes every other PENDING call for
	// the same restaurant with outcome superseded.  It returns the
	// accepted call and the superseded ones.
	AcceptCall(ctx context.Context, callID string, actorID uint64, at time.Time) (model.Call, []model.Call, error)
	// EndCall transitions the call ACTIVE -> COMPLETED with
	// outcome ended and flips the restaurant back to available.
	EndCall(ctx context.Context, callID string, actorID uint64, at time.Time) (model.Call, error)
	// ExpirePending completes every PENDING call for the
	// restaurant created at or before cutoff with outcome expired,
	// returning the calls it closed.
	ExpirePending(ctx context.Context, restaurantID uint64, cutoff, at time.Time) ([]model.Call, error)
	// RestaurantsWithPendingBefore lists restaurants that have at
	// least one PENDING call created at or before cutoff.
	RestaurantsWithPendingBefore(ctx context.Context, cutoff time.Time) ([]uint64, error)
	// RestaurantStatus returns available|busy, or
	// ErrRestaurantNotFound.
	RestaurantStatus(ctx context.Context, restaurantID uint64) (string, error)
}
