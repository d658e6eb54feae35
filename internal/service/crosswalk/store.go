package crosswalk

import (
	"sync"
	"time"

	"safestep/internal/dto"
)

// Store holds the shared detection state. The capture loop writes it and
// HTTP handlers read it.
type Store struct {
	mu          sync.RWMutex
	state       dto.CrosswalkState
	updatedAt   time.Time
	subscribers map[chan dto.CrosswalkState]struct{}
}

func NewStore() *Store {
	return &Store{subscribers: make(map[chan dto.CrosswalkState]struct{})}
}

// Get returns a copy of the current state.
func (s *Store) Get() dto.CrosswalkState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UpdatedAt returns the time of the last Set call.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Set replaces the state and reports whether it differs from the previous one.
// Subscribers are notified only on change.
func (s *Store) Set(state dto.CrosswalkState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updatedAt = time.Now()
	if state == s.state {
		return false
	}
	s.state = state

	for ch := range s.subscribers {
		// Keep only the newest state for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
	return true
}

// Subscribe returns a channel receiving every state change and a function
// that cancels the subscription.
func (s *Store) Subscribe() (<-chan dto.CrosswalkState, func()) {
	ch := make(chan dto.CrosswalkState, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
