package chat

import "sync"

// seenSet is a bounded set of recently seen message ids. Gateways replay
// undelivered events after a reconnect; recording ids keeps redelivered
// commands from running twice. Oldest ids are evicted ring-buffer style.
type seenSet struct {
	mu    sync.Mutex
	set   map[string]struct{}
	order []string
	next  int
}

func newSeenSet(capacity int) *seenSet {
	if capacity < 1 {
		capacity = 1
	}
	return &seenSet{
		set:   make(map[string]struct{}, capacity),
		order: make([]string, capacity),
	}
}

// seenAndRecord reports whether id was already seen, recording it if not.
func (s *seenSet) seenAndRecord(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		return true
	}

	if evicted := s.order[s.next]; evicted != "" {
		delete(s.set, evicted)
	}
	s.order[s.next] = id
	s.next = (s.next + 1) % len(s.order)
	s.set[id] = struct{}{}
	return false
}
