package poller

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kioskconnect/backend/internal/model"
)

// Local presentation phases on the kiosk side.  These are what the
// screen shows, not what the backend stores: Connecting appears the
// moment the user taps, before any network round trip, and
// Connecting -> InCall happens on a fixed local timer approximating
// confirmation latency.  The authoritative poll result always wins
// over this optimistic view on conflict.
const (
	PhaseIdle       = "idle"
	PhaseConnecting = "connecting"
	PhaseInCall     = "active"
)

// DefaultConnectDelay is how long the connecting animation runs
// before the local view optimistically shows the call as live.
const DefaultConnectDelay = 1500 * time.Millisecond

// resolvePhase folds the two independent inputs — the local timer
// and the latest authoritative snapshot — into the next local
// phase.  Rules, in priority order:
//
//  1. An authoritative COMPLETED forces idle regardless of the
//     local view; endedRemotely tells the UI to say so.
//  2. An authoritative ACTIVE promotes to the in-call phase even
//     if the local timer has not elapsed yet.
//  3. An authoritative PENDING never regresses the local view:
//     the optimistic timer may already have advanced it.
//  4. With no authoritative input, the timer alone advances
//     connecting to the in-call phase.
func resolvePhase(cur string, timerElapsed bool, authStatus string, haveAuth bool) (next string, endedRemotely bool) {
	if haveAuth {
		switch authStatus {
		case model.CallCompleted:
			return PhaseIdle, cur != PhaseIdle
		case model.CallActive:
			return PhaseInCall, false
		}
	}
	if cur == PhaseConnecting && timerElapsed {
		return PhaseInCall, false
	}
	return cur, false
}

// Caller drives one kiosk screen's view of a single outstanding
// call.  It owns the optimistic phase machine and a poll loop that
// reconciles it against the backend.
type Caller struct {
	client       *Client
	originID     uint64
	interval     time.Duration
	connectDelay time.Duration

	mu            sync.Mutex
	phase         string
	callID        string
	startedAt     time.Time
	lastRevision  uint64
	endedRemotely bool
}

// NewCaller builds a Caller for one kiosk screen.  interval is the
// reconciliation poll cadence.
func NewCaller(client *Client, originID uint64, interval time.Duration) *Caller {
	return &Caller{
		client:       client,
		originID:     originID,
		interval:     interval,
		connectDelay: DefaultConnectDelay,
		phase:        PhaseIdle,
	}
}

// Phase returns the current local phase and whether the last
// transition to idle was forced by remote completion.
func (ca *Caller) Phase() (string, bool) {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	return ca.phase, ca.endedRemotely
}

// CallID returns the id of the outstanding call, if any.
func (ca *Caller) CallID() string {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	return ca.callID
}

// Place starts a call against the restaurant.  The local view
// flips to connecting immediately; the create request races the
// animation.  A busy refusal (ErrConflict) drops straight back to
// idle so the kiosk can show the restaurant as busy.
func (ca *Caller) Place(ctx context.Context, restaurantID uint64) error {
	ca.mu.Lock()
	if ca.phase != PhaseIdle {
		ca.mu.Unlock()
		return errors.New("a call is already in progress")
	}
	ca.phase = PhaseConnecting
	ca.startedAt = time.Now()
	ca.endedRemotely = false
	ca.mu.Unlock()

	call, err := ca.client.CreateCall(ctx, restaurantID, ca.originID)
	if err != nil {
		ca.mu.Lock()
		ca.phase = PhaseIdle
		ca.callID = ""
		ca.mu.Unlock()
		return err
	}

	ca.mu.Lock()
	ca.callID = call.ID
	ca.lastRevision = call.Revision
	ca.mu.Unlock()
	return nil
}

// Run polls the outstanding call until ctx is cancelled, applying
// each authoritative snapshot through resolvePhase.  Retryable
// errors are swallowed; the next tick tries again.
func (ca *Caller) Run(ctx context.Context) {
	ticker := time.NewTicker(ca.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ca.tick(ctx)
		}
	}
}

func (ca *Caller) tick(ctx context.Context) {
	ca.mu.Lock()
	id := ca.callID
	ca.mu.Unlock()

	var (
		snap model.Call
		have bool
	)
	if id != "" {
		call, err := ca.client.GetCall(ctx, id)
		switch {
		case err == nil:
			snap, have = call, true
		case errors.Is(err, ErrGone):
			// Record vanished; treat as remote completion.
			snap, have = model.Call{ID: id, Status: model.CallCompleted, Revision: ^uint64(0)}, true
		case errors.Is(err, ErrRetryable):
			// silent; next tick retries
		default:
			log.Printf("caller: poll failed: %v", err)
		}
	}

	ca.mu.Lock()
	defer ca.mu.Unlock()

	// Discard out-of-order snapshots: a slow response from an
	// earlier tick must not roll back a newer one.
	if have && snap.Revision < ca.lastRevision {
		have = false
	}
	if have {
		ca.lastRevision = snap.Revision
	}

	timerElapsed := ca.phase == PhaseConnecting && time.Since(ca.startedAt) >= ca.connectDelay
	next, ended := resolvePhase(ca.phase, timerElapsed, snap.Status, have)
	if ended {
		ca.endedRemotely = true
		ca.callID = ""
		ca.lastRevision = 0
	}
	ca.phase = next
}
