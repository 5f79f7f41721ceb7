package ws

import "sync"

// sessions remembers which room codes each connection has touched as host or
// player, so a closed socket can be reconciled with exactly those rooms.
type sessions struct {
	mu     sync.Mutex
	byConn map[string]map[string]struct{}
}

func newSessions() *sessions {
	return &sessions{byConn: make(map[string]map[string]struct{})}
}

func (s *sessions) bind(connID, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes, ok := s.byConn[connID]
	if !ok {
		codes = make(map[string]struct{})
		s.byConn[connID] = codes
	}
	codes[code] = struct{}{}
}

// release forgets connID and returns the codes it was bound to.
func (s *sessions) release(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.byConn[connID]
	delete(s.byConn, connID)
	out := make([]string, 0, len(codes))
	for code := range codes {
		out = append(out, code)
	}
	return out
}
