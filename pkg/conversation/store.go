package conversation

import "sync"

// Handle is a stable reference to one turn in a Store, captured when the
// turn is appended. Streams resolve their turn through the handle on every
// envelope rather than through "whatever is currently last", so a second
// query dispatched mid-stream can never receive the first stream's events.
type Handle int

// Store is the append-only, observable list of turns for one conversation
// mode. Turns are only ever appended or replaced in place; they are never
// removed. All methods are safe for concurrent use — envelopes arrive on
// stream reader goroutines while renderers read snapshots.
type Store[T any] struct {
	mu    sync.RWMutex
	turns []T
	subs  []func(Handle)
}

// NewStore creates an empty turn store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{}
}

// Append adds a turn and returns its handle. Subscribers are notified.
func (s *Store[T]) Append(turn T) Handle {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	h := Handle(len(s.turns) - 1)
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, h)
	return h
}

// Update replaces the turn at h and notifies subscribers. It reports false
// for a handle that was never issued by this store.
func (s *Store[T]) Update(h Handle, turn T) bool {
	s.mu.Lock()
	if h < 0 || int(h) >= len(s.turns) {
		s.mu.Unlock()
		return false
	}
	s.turns[h] = turn
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, h)
	return true
}

// Get returns a copy of the turn at h.
func (s *Store[T]) Get(h Handle) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h < 0 || int(h) >= len(s.turns) {
		var zero T
		return zero, false
	}
	return s.turns[h], true
}

// Turns returns a snapshot of all turns in append order.
func (s *Store[T]) Turns() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Subscribe registers fn to run after every append or update, with the
// handle of the affected turn. Callbacks run on the mutating goroutine and
// must not block.
func (s *Store[T]) Subscribe(fn func(Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// subscribers returns the current subscriber list; callers must hold mu.
// Notification happens outside the lock so a subscriber can read the store.
func (s *Store[T]) subscribers() []func(Handle) {
	out := make([]func(Handle), len(s.subs))
	copy(out, s.subs)
	return out
}

func notify(subs []func(Handle), h Handle) {
	for _, fn := range subs {
		fn(h)
	}
}
