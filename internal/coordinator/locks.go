package coordinator

import "sync"

// restaurantLocks hands out one mutex per restaurant ID so that
// transitions touching the same restaurant's active-call slot are
// serialized while different restaurants never contend.  Mutexes
// are created lazily and kept for the life of the process; the
// set of restaurants is small and bounded.
type restaurantLocks struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newRestaurantLocks() *restaurantLocks {
	return &restaurantLocks{locks: make(map[uint64]*sync.Mutex)}
}

// get returns the mutex for the given restaurant, creating it on
// first use.
func (r *restaurantLocks) get(restaurantID uint64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[restaurantID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[restaurantID] = m
	}
	return m
}
