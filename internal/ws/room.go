package ws

import (
	"sync"
)

// group is the multicast set of connections subscribed to one room code.
type group struct {
	mu    sync.RWMutex
	conns map[*clientConn]struct{}
}

func newGroup() *group { return &group{conns: map[*clientConn]struct{}{}} }

func (g *group) add(c *clientConn) {
	g.mu.Lock()
	g.conns[c] = struct{}{}
	g.mu.Unlock()
}

func (g *group) remove(c *clientConn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
}

func (g *group) size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

func (g *group) broadcast(msg []byte) {
	// Take a quick snapshot of the current connections
	g.mu.RLock()
	conns := make([]*clientConn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	var failed []*clientConn
	for _, c := range conns {
		if !c.enqueue(msg) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		g.remove(c)
	}
}
