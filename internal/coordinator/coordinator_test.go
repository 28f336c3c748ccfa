package coordinator_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/kioskconnect/backend/internal/coordinator"
	"github.com/kioskconnect/backend/internal/coordinator/memstore"
	"github.com/kioskconnect/backend/internal/model"
)

func newCoordinator(restaurants ...uint64) (*coordinator.Coordinator, *memstore.Store) {
	store := memstore.New()
	for _, id := range restaurants {
		store.AddRestaurant(id, model.StatusAvailable)
	}
	return coordinator.New(store), store
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	co, store := newCoordinator(1)

	call, err := co.Create(ctx, 1, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if call.Status != model.CallPending || call.Revision != 1 {
		t.Fatalf("created call = %+v, want PENDING rev 1", call)
	}
	if status, _ := store.RestaurantStatus(ctx, 1); status != model.StatusAvailable {
		t.Fatalf("restaurant busy after create; a pending call must not occupy the slot")
	}

	active, superseded, err := co.Accept(ctx, call.ID, 77)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if active.Status != model.CallActive {
		t.Fatalf("status after accept = %s, want ACTIVE", active.Status)
	}
	if active.AcceptedBy == nil || *active.AcceptedBy != 77 {
		t.Fatalf("accept attribution lost: %+v", active.AcceptedBy)
	}
	if len(superseded) != 0 {
		t.Fatalf("superseded %d calls, want 0", len(superseded))
	}
	if status, _ := store.RestaurantStatus(ctx, 1); status != model.StatusBusy {
		t.Fatalf("restaurant not busy while a call is active")
	}

	done, err := co.End(ctx, call.ID, 77)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if done.Status != model.CallCompleted || done.Outcome == nil || *done.Outcome != model.OutcomeEnded {
		t.Fatalf("ended call = %+v, want COMPLETED/ended", done)
	}
	if status, _ := store.RestaurantStatus(ctx, 1); status != model.StatusAvailable {
		t.Fatalf("restaurant still busy after end")
	}

	if !(done.CreatedAt.Before(*done.AcceptedAt) || done.CreatedAt.Equal(*done.AcceptedAt)) ||
		done.AcceptedAt.After(*done.CompletedAt) {
		t.Fatalf("timestamps not monotonic: created=%v accepted=%v completed=%v",
			done.CreatedAt, done.AcceptedAt, done.CompletedAt)
	}
	if done.Revision != 3 {
		t.Fatalf("revision after two transitions = %d, want 3", done.Revision)
	}
}

func TestCreateRefusedWhileBusy(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(1)

	first, err := co.Create(ctx, 1, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := co.Accept(ctx, first.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := co.Create(ctx, 1, 11); !errors.Is(err, coordinator.ErrRestaurantBusy) {
		t.Fatalf("create while busy: err = %v, want ErrRestaurantBusy", err)
	}

	// A different restaurant is unaffected.
	co2, _ := newCoordinator(2)
	if _, err := co2.Create(ctx, 2, 11); err != nil {
		t.Fatalf("create on available restaurant: %v", err)
	}
}

func TestCreateUnknownRestaurant(t *testing.T) {
	co, _ := newCoordinator(1)
	if _, err := co.Create(context.Background(), 99, 10); !errors.Is(err, coordinator.ErrRestaurantNotFound) {
		t.Fatalf("err = %v, want ErrRestaurantNotFound", err)
	}
}

func TestSupersede(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(1)

	p1, err := co.Create(ctx, 1, 10)
	if err != nil {
		t.Fatalf("create p1: %v", err)
	}
	p2, err := co.Create(ctx, 1, 11)
	if err != nil {
		t.Fatalf("create p2 while available: %v", err)
	}

	_, superseded, err := co.Accept(ctx, p1.ID, 7)
	if err != nil {
		t.Fatalf("accept p1: %v", err)
	}
	if len(superseded) != 1 || superseded[0].ID != p2.ID {
		t.Fatalf("superseded = %+v, want exactly p2", superseded)
	}
	got := superseded[0]
	if got.Status != model.CallCompleted || got.Outcome == nil || *got.Outcome != model.OutcomeSuperseded {
		t.Fatalf("rival call = %+v, want COMPLETED/superseded", got)
	}

	// The loser cannot be accepted afterwards.
	if _, _, err := co.Accept(ctx, p2.ID, 8); !errors.Is(err, coordinator.ErrInvalidTransition) {
		t.Fatalf("accept superseded call: err = %v, want ErrInvalidTransition", err)
	}
}

func TestAcceptIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(1)

	call, _ := co.Create(ctx, 1, 10)
	if _, _, err := co.Accept(ctx, call.ID, 7); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	// Retried accept by the same actor still fails: the caller must
	// refetch rather than assume it won.
	if _, _, err := co.Accept(ctx, call.ID, 7); !errors.Is(err, coordinator.ErrInvalidTransition) {
		t.Fatalf("second accept: err = %v, want ErrInvalidTransition", err)
	}
}

func TestFailedAcceptLeavesCallUnchanged(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(1)

	call, _ := co.Create(ctx, 1, 10)
	accepted, _, _ := co.Accept(ctx, call.ID, 7)
	before, _ := co.Get(ctx, call.ID)

	if _, _, err := co.Accept(ctx, call.ID, 8); !errors.Is(err, coordinator.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	after, _ := co.Get(ctx, call.ID)
	if after != before {
		t.Fatalf("failed accept mutated the record:\nbefore %+v\nafter  %+v", before, after)
	}
	if after.AcceptedBy == nil || *after.AcceptedBy != *accepted.AcceptedBy {
		t.Fatalf("attribution changed on failed accept")
	}
}

func TestConcurrentAcceptOneWinner(t *testing.T) {
	ctx := context.Background()
	co, store := newCoordinator(1)

	call, err := co.Create(ctx, 1, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 16
	var (
		wg   sync.WaitGroup
		wins int
		mu   sync.Mutex
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(actor uint64) {
			defer wg.Done()
			if _, _, err := co.Accept(ctx, call.ID, actor); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, coordinator.ErrInvalidTransition) {
				t.Errorf("loser got %v, want ErrInvalidTransition", err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d accepts won, want exactly 1", wins)
	}
	if status, _ := store.RestaurantStatus(ctx, 1); status != model.StatusBusy {
		t.Fatalf("restaurant not busy after the race")
	}
}

func TestEndRequiresActive(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(1)

	call, _ := co.Create(ctx, 1, 10)
	if _, err := co.End(ctx, call.ID, 7); !errors.Is(err, coordinator.ErrInvalidTransition) {
		t.Fatalf("end pending call: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := co.End(ctx, "no-such-call", 7); !errors.Is(err, coordinator.ErrCallNotFound) {
		t.Fatalf("end missing call: err = %v, want ErrCallNotFound", err)
	}
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	co, _ := newCoordinator(1, 2)

	p1, _ := co.Create(ctx, 1, 10)
	p2, _ := co.Create(ctx, 2, 11)

	// Zero disables the sweep entirely.
	if expired, err := co.ExpireStale(ctx, 0); err != nil || expired != nil {
		t.Fatalf("ExpireStale(0) = %v, %v; want nil, nil", expired, err)
	}

	time.Sleep(5 * time.Millisecond)
	expired, err := co.ExpireStale(ctx, time.Nanosecond)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expired %d calls, want 2", len(expired))
	}
	for _, c := range expired {
		if c.Status != model.CallCompleted || c.Outcome == nil || *c.Outcome != model.OutcomeExpired {
			t.Fatalf("expired call = %+v, want COMPLETED/expired", c)
		}
	}
	for _, id := range []string{p1.ID, p2.ID} {
		got, _ := co.Get(ctx, id)
		if got.Status != model.CallCompleted {
			t.Fatalf("call %s not completed after sweep", id)
		}
	}
}

// TestInterleavedInvariant randomly interleaves create/accept/end
// across several restaurants and checks after every step that no
// restaurant ever holds more than one active call, and that busy
// tracks exactly the presence of an active call.
func TestInterleavedInvariant(t *testing.T) {
	ctx := context.Background()
	restaurants := []uint64{1, 2, 3}
	co, store := newCoordinator(restaurants...)
	rng := rand.New(rand.NewSource(1))

	var callIDs []string
	for step := 0; step < 500; step++ {
		rid := restaurants[rng.Intn(len(restaurants))]
		switch rng.Intn(3) {
		case 0:
			if call, err := co.Create(ctx, rid, uint64(rng.Intn(5)+1)); err == nil {
				callIDs = append(callIDs, call.ID)
			} else if !errors.Is(err, coordinator.ErrRestaurantBusy) {
				t.Fatalf("create: %v", err)
			}
		case 1:
			if len(callIDs) > 0 {
				id := callIDs[rng.Intn(len(callIDs))]
				if _, _, err := co.Accept(ctx, id, uint64(rng.Intn(9)+1)); err != nil &&
					!errors.Is(err, coordinator.ErrInvalidTransition) {
					t.Fatalf("accept: %v", err)
				}
			}
		case 2:
			if len(callIDs) > 0 {
				id := callIDs[rng.Intn(len(callIDs))]
				if _, err := co.End(ctx, id, uint64(rng.Intn(9)+1)); err != nil &&
					!errors.Is(err, coordinator.ErrInvalidTransition) {
					t.Fatalf("end: %v", err)
				}
			}
		}

		for _, rid := range restaurants {
			calls, err := co.List(ctx, rid)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			active := 0
			for _, c := range calls {
				if c.Status == model.CallActive {
					active++
				}
			}
			if active > 1 {
				t.Fatalf("restaurant %d has %d active calls after step %d", rid, active, step)
			}
			status, _ := store.RestaurantStatus(ctx, rid)
			if (active == 1) != (status == model.StatusBusy) {
				t.Fatalf("restaurant %d: active=%d but status=%s after step %d", rid, active, status, step)
			}
		}
	}
}
