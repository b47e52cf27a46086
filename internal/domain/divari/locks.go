package divari

import "sync"

// seasonLocks hands out one mutex per season id. Entries are never removed;
// the number of seasons stays small.
type seasonLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newSeasonLocks() *seasonLocks {
	return &seasonLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock blocks until the season's mutex is held and returns its release func.
func (s *seasonLocks) lock(seasonID int64) func() {
	s.mu.Lock()
	m, ok := s.locks[seasonID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[seasonID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
