// Package memstore provides an in-memory coordinator.Store used
// by tests.  It honors the same contract as the MySQL repository:
// every transition is applied atomically under one lock, statuses
// are re-verified before mutation, and revisions only move
// forward.  It has no durability and is never wired in
// production.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kioskconnect/backend/internal/coordinator"
	"github.com/kioskconnect/backend/internal/model"
)

// Store is an in-memory implementation of coordinator.Store.
type Store struct {
	mu          sync.Mutex
	calls       map[string]*model.Call
	restaurants map[uint64]string // id -> available|busy
	order       []string          // call IDs in insertion order
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		calls:       make(map[string]*model.Call),
		restaurants: make(map[uint64]string),
	}
}

// AddRestaurant seeds a restaurant with the given status.
func (s *Store) AddRestaurant(id uint64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[id] = status
}

// RestaurantStatus implements coordinator.Store.
func (s *Store) RestaurantStatus(_ context.Context, restaurantID uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.restaurants[restaurantID]
	if !ok {
		return "", coordinator.ErrRestaurantNotFound
	}
	return status, nil
}

// CreateCall implements coordinator.Store.
func (s *Store) CreateCall(_ context.Context, c *model.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.restaurants[c.RestaurantID]; !ok {
		return coordinator.ErrRestaurantNotFound
	}
	cp := *c
	s.calls[c.ID] = &cp
	s.order = append(s.order, c.ID)
	return nil
}

// GetCall implements coordinator.Store.
func (s *Store) GetCall(_ context.Context, id string) (model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return model.Call{}, coordinator.ErrCallNotFound
	}
	return *c, nil
}

// ListCalls implements coordinator.Store.
func (s *Store) ListCalls(_ context.Context, restaurantID uint64) ([]model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.restaurants[restaurantID]; !ok {
		return nil, coordinator.ErrRestaurantNotFound
	}
	out := make([]model.Call, 0)
	for _, id := range s.order {
		c := s.calls[id]
		if c.RestaurantID == restaurantID {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AcceptCall implements coordinator.Store.
func (s *Store) AcceptCall(_ context.Context, callID string, actorID uint64, at time.Time) (model.Call, []model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return model.Call{}, nil, coordinator.ErrCallNotFound
	}
	if c.Status != model.CallPending {
		return model.Call{}, nil, coordinator.ErrInvalidTransition
	}
	c.Status = model.CallActive
	actor := actorID
	c.AcceptedBy = &actor
	ts := at
	c.AcceptedAt = &ts
	c.Revision++
	s.restaurants[c.RestaurantID] = model.StatusBusy

	var superseded []model.Call
	for _, id := range s.order {
		rival := s.calls[id]
		if rival.ID == callID || rival.RestaurantID != c.RestaurantID || rival.Status != model.CallPending {
			continue
		}
		rival.Status = model.CallCompleted
		outcome := model.OutcomeSuperseded
		rival.Outcome = &outcome
		doneAt := at
		rival.CompletedAt = &doneAt
		rival.Revision++
		superseded = append(superseded, *rival)
	}
	return *c, superseded, nil
}

// EndCall implements coordinator.Store.
func (s *Store) EndCall(_ context.Context, callID string, actorID uint64, at time.Time) (model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return model.Call{}, coordinator.ErrCallNotFound
	}
	if c.Status != model.CallActive {
		return model.Call{}, coordinator.ErrInvalidTransition
	}
	_ = actorID // attribution is kept on accepted_by only
	c.Status = model.CallCompleted
	outcome := model.OutcomeEnded
	c.Outcome = &outcome
	ts := at
	c.CompletedAt = &ts
	c.Revision++
	s.restaurants[c.RestaurantID] = model.StatusAvailable
	return *c, nil
}

// ExpirePending implements coordinator.Store.
func (s *Store) ExpirePending(_ context.Context, restaurantID uint64, cutoff, at time.Time) ([]model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []model.Call
	for _, id := range s.order {
		c := s.calls[id]
		if c.RestaurantID != restaurantID || c.Status != model.CallPending || c.CreatedAt.After(cutoff) {
			continue
		}
		c.Status = model.CallCompleted
		outcome := model.OutcomeExpired
		c.Outcome = &outcome
		ts := at
		c.CompletedAt = &ts
		c.Revision++
		expired = append(expired, *c)
	}
	return expired, nil
}

// RestaurantsWithPendingBefore implements coordinator.Store.
func (s *Store) RestaurantsWithPendingBefore(_ context.Context, cutoff time.Time) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, id := range s.order {
		c := s.calls[id]
		if c.Status == model.CallPending && !c.CreatedAt.After(cutoff) && !seen[c.RestaurantID] {
			seen[c.RestaurantID] = true
			ids = append(ids, c.RestaurantID)
		}
	}
	return ids, nil
}
