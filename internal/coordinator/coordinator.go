// Package coordinator owns the call lifecycle: which transitions
// are legal, how rival calls for one restaurant are resolved, and
// the busy/available interlock on the restaurant record.  All
// transitions for a given restaurant run under a per-restaurant
// mutex, so two staff members racing to accept the same call
// cannot both win; operations on different restaurants never
// contend.
package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kioskconnect/backend/internal/model"
)

// Coordinator validates and applies call transitions against a
// Store.  The zero value is not usable; construct with New.
type Coordinator struct {
	store Store
	locks *restaurantLocks
	now   func() time.Time
}

// New returns a Coordinator backed by the given store.
func New(store Store) *Coordinator {
	return &Coordinator{
		store: store,
		locks: newRestaurantLocks(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create places a new call from a kiosk screen against a
// restaurant.  It refuses with ErrRestaurantBusy while the
// restaurant has an ACTIVE call; multiple PENDING calls may queue
// while the restaurant is available, and the first accept closes
// the rest.
func (co *Coordinator) Create(ctx context.Context, restaurantID, originID uint64) (model.Call, error) {
	mu := co.locks.get(restaurantID)
	mu.Lock()
	defer mu.Unlock()

	status, err := co.store.RestaurantStatus(ctx, restaurantID)
	if err != nil {
		return model.Call{}, err
	}
	if status == model.StatusBusy {
		return model.Call{}, ErrRestaurantBusy
	}

	call := model.Call{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		OriginID:     originID,
		Status:       model.CallPending,
		Revision:     1,
		CreatedAt:    co.now(),
	}
	if err := co.store.CreateCall(ctx, &call); err != nil {
		return model.Call{}, err
	}
	return call, nil
}

// Accept transitions a PENDING call to ACTIVE on behalf of a
// staff member and flips the restaurant busy.  Every other
// PENDING call for the restaurant is completed with outcome
// superseded in the same store transaction: first accept wins.
// Accepting a call that is no longer PENDING fails with
// ErrInvalidTransition, including a retried accept on an already
// ACTIVE call — attribution under concurrent staff actions
// matters more than a lenient retry.
func (co *Coordinator) Accept(ctx context.Context, callID string, actorID uint64) (model.Call, []model.Call, error) {
	call, err := co.store.GetCall(ctx, callID)
	if err != nil {
		return model.Call{}, nil, err
	}

	mu := co.locks.get(call.RestaurantID)
	mu.Lock()
	defer mu.Unlock()

	if !ValidTransition("accept", call.Status) {
		return model.Call{}, nil, ErrInvalidTransition
	}
	return co.store.AcceptCall(ctx, callID, actorID, co.now())
}

// End transitions an ACTIVE call to COMPLETED with outcome ended
// and flips the restaurant back to available.  Ending a call in
// any other status fails with ErrInvalidTransition.
func (co *Coordinator) End(ctx context.Context, callID string, actorID uint64) (model.Call, error) {
	call, err := co.store.GetCall(ctx, callID)
	if err != nil {
		return model.Call{}, err
	}

	mu := co.locks.get(call.RestaurantID)
	mu.Lock()
	defer mu.Unlock()

	if !ValidTransition("end", call.Status) {
		return model.Call{}, ErrInvalidTransition
	}
	return co.store.EndCall(ctx, callID, actorID, co.now())
}

// Get returns a single call by ID.
func (co *Coordinator) Get(ctx context.Context, callID string) (model.Call, error) {
	return co.store.GetCall(ctx, callID)
}

// List returns every call for a restaurant, newest first.
func (co *Coordinator) List(ctx context.Context, restaurantID uint64) ([]model.Call, error) {
	return co.store.ListCalls(ctx, restaurantID)
}

// ExpireStale completes PENDING calls older than maxAge with
// outcome expired, taking each restaurant's lock in turn so the
// sweep obeys the same serialization as accept and end.  A maxAge
// of zero disables expiry and returns nil.  The expired calls are
// returned so the caller can publish lifecycle events for them.
func (co *Coordinator) ExpireStale(ctx context.Context, maxAge time.Duration) ([]model.Call, error) {
	if maxAge <= 0 {
		return nil, nil
	}
	now := co.now()
	cutoff := now.Add(-maxAge)
	ids, err := co.store.RestaurantsWithPendingBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	var expired []model.Call
	for _, id := range ids {
		mu := co.locks.get(id)
		mu.Lock()
		calls, err := co.store.ExpirePending(ctx, id, cutoff, now)
		mu.Unlock()
		if err != nil {
			return expired, err
		}
		expired = append(expired, calls...)
	}
	return expired, nil
}
