package poller

import (
	"testing"
	"time"

	"github.com/kioskconnect/backend/internal/model"
)

func ts(sec int) *time.Time {
	t := time.Date(2025, 6, 1, 12, 0, sec, 0, time.UTC)
	return &t
}

func TestPartition(t *testing.T) {
	calls := []model.Call{
		{ID: "p1", Status: model.CallPending},
		{ID: "a1", Status: model.CallActive},
		{ID: "c1", Status: model.CallCompleted, CompletedAt: ts(1)},
		{ID: "c2", Status: model.CallCompleted, CompletedAt: ts(4)},
		{ID: "p2", Status: model.CallPending},
		{ID: "c3", Status: model.CallCompleted, CompletedAt: ts(2)},
		{ID: "c4", Status: model.CallCompleted, CompletedAt: ts(3)},
	}

	snap := partition(calls)

	if len(snap.Pending) != 2 || snap.Pending[0].ID != "p1" || snap.Pending[1].ID != "p2" {
		t.Fatalf("pending = %+v, want [p1 p2] in server order", snap.Pending)
	}
	if snap.Active == nil || snap.Active.ID != "a1" {
		t.Fatalf("active = %+v, want a1", snap.Active)
	}
	if len(snap.Completed) != CompletedWindow {
		t.Fatalf("completed window = %d, want %d", len(snap.Completed), CompletedWindow)
	}
	wantOrder := []string{"c2", "c4", "c3"} // most recent first, c1 truncated
	for i, want := range wantOrder {
		if snap.Completed[i].ID != want {
			t.Fatalf("completed[%d] = %s, want %s", i, snap.Completed[i].ID, want)
		}
	}
}

func TestPartitionToleratesDuplicateActive(t *testing.T) {
	calls := []model.Call{
		{ID: "a1", Status: model.CallActive},
		{ID: "a2", Status: model.CallActive},
	}
	snap := partition(calls)
	if snap.Active == nil || snap.Active.ID != "a1" {
		t.Fatalf("active = %+v, want first active call", snap.Active)
	}
}

func TestApplyDiscardsStaleSnapshot(t *testing.T) {
	ce := NewCallee(nil, 1, time.Second)

	ce.apply([]model.Call{{ID: "x", Status: model.CallActive, Revision: 2}})
	if snap := ce.Snapshot(); snap.Active == nil {
		t.Fatal("fresh snapshot not applied")
	}

	// A late response from an earlier poll cycle carries an older
	// revision; the whole list must be dropped.
	ce.apply([]model.Call{{ID: "x", Status: model.CallPending, Revision: 1}})
	snap := ce.Snapshot()
	if snap.Active == nil || len(snap.Pending) != 0 {
		t.Fatalf("stale snapshot applied: %+v", snap)
	}

	// A newer revision replaces the view.
	ce.apply([]model.Call{{ID: "x", Status: model.CallCompleted, Revision: 3, CompletedAt: ts(1)}})
	snap = ce.Snapshot()
	if snap.Active != nil || len(snap.Completed) != 1 {
		t.Fatalf("newer snapshot not applied: %+v", snap)
	}
}
