package poller

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/kioskconnect/backend/internal/model"
)

// CompletedWindow is how many recently completed calls the
// dashboard keeps on screen.
const CompletedWindow = 3

// Snapshot is one rendered view of a restaurant's calls: every
// pending call, the active one if any, and a short most-recent-first
// window of completed calls.
type Snapshot struct {
	Pending   []model.Call
	Active    *model.Call
	Completed []model.Call
}

// partition buckets calls by status.  Pending keeps the server's
// newest-first order; completed is sorted most recent first and
// truncated to the display window.  At most one call should be
// active; if the backend ever returns more the first wins and the
// rest are ignored rather than crashing the dashboard.
func partition(calls []model.Call) Snapshot {
	var s Snapshot
	for i := range calls {
		c := calls[i]
		switch c.Status {
		case model.CallPending:
			s.Pending = append(s.Pending, c)
		case model.CallActive:
			if s.Active == nil {
				s.Active = &c
			}
		case model.CallCompleted:
			s.Completed = append(s.Completed, c)
		}
	}
	sort.SliceStable(s.Completed, func(i, j int) bool {
		a, b := s.Completed[i].CompletedAt, s.Completed[j].CompletedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	if len(s.Completed) > CompletedWindow {
		s.Completed = s.Completed[:CompletedWindow]
	}
	return s
}

// Callee is the restaurant dashboard's poll loop.  Unlike the
// kiosk caller it is never optimistic: accept and end go straight
// to the backend and the partition is rebuilt from an immediate
// refetch, because acting on a stale local view here is exactly
// the double-accept race the backend has to resolve.
type Callee struct {
	client       *Client
	restaurantID uint64
	interval     time.Duration

	mu        sync.Mutex
	snap      Snapshot
	revisions map[string]uint64
}

// NewCallee builds a Callee for one restaurant's dashboard.
func NewCallee(client *Client, restaurantID uint64, interval time.Duration) *Callee {
	return &Callee{
		client:       client,
		restaurantID: restaurantID,
		interval:     interval,
		revisions:    make(map[string]uint64),
	}
}

// Snapshot returns the last rendered partition.
func (ce *Callee) Snapshot() Snapshot {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.snap
}

// Run polls until ctx is cancelled.  Transient errors keep the
// previous snapshot on screen and retry on the next tick.
func (ce *Callee) Run(ctx context.Context) {
	ce.refresh(ctx)
	ticker := time.NewTicker(ce.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ce.refresh(ctx)
		}
	}
}

// Accept accepts a pending call and refetches immediately so the
// dashboard repaints from authoritative state.  A conflict means
// someone else got there first; the refetch shows the truth.
func (ce *Callee) Accept(ctx context.Context, callID string) error {
	_, err := ce.client.AcceptCall(ctx, callID)
	ce.refresh(ctx)
	return err
}

// End ends the active call and refetches immediately.
func (ce *Callee) End(ctx context.Context, callID string) error {
	_, err := ce.client.EndCall(ctx, callID)
	ce.refresh(ctx)
	return err
}

func (ce *Callee) refresh(ctx context.Context) {
	calls, err := ce.client.ListCalls(ctx, ce.restaurantID)
	if err != nil {
		if !errors.Is(err, ErrRetryable) {
			log.Printf("callee: poll failed: %v", err)
		}
		return
	}
	ce.apply(calls)
}

// apply installs a fetched call list unless it is stale.  Poll
// cycles may overlap; a response carrying any call revision older
// than one already rendered is a late arrival from an earlier
// cycle and is dropped whole.
func (ce *Callee) apply(calls []model.Call) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	for _, c := range calls {
		if seen, ok := ce.revisions[c.ID]; ok && c.Revision < seen {
			return
		}
	}
	for _, c := range calls {
		ce.revisions[c.ID] = c.Revision
	}
	ce.snap = partition(calls)
}
