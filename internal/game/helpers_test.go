package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.UnixMilli(1_700_000_000_000)

type message struct {
	target string
	event  string
	body   any
}

// recorder is a Notifier that keeps everything it was asked to deliver.
type recorder struct {
	mu         sync.Mutex
	broadcasts []message
	direct     []message
	members    map[string]map[string]bool
	closed     []string
}

func newRecorder() *recorder {
	return &recorder{members: make(map[string]map[string]bool)}
}

func (n *recorder) Broadcast(code, event string, body any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, message{target: code, event: event, body: body})
}

func (n *recorder) Send(connID, event string, body any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct = append(n.direct, message{target: connID, event: event, body: body})
}

func (n *recorder) Join(code, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.members[code] == nil {
		n.members[code] = make(map[string]bool)
	}
	n.members[code][connID] = true
}

func (n *recorder) Leave(code, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.members[code], connID)
}

func (n *recorder) Close(code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.members, code)
	n.closed = append(n.closed, code)
}

func (n *recorder) broadcastCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.broadcasts)
}

func (n *recorder) last(t *testing.T, event string) message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.broadcasts) - 1; i >= 0; i-- {
		if n.broadcasts[i].event == event {
			return n.broadcasts[i]
		}
	}
	t.Fatalf("no %q broadcast recorded", event)
	return message{}
}

func (n *recorder) lastSnapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, ok := n.last(t, EventRoomUpdate).body.(Snapshot)
	require.True(t, ok)
	return snap
}

type fixture struct {
	reg   *Registry
	clock *ManualClock
	n     *recorder
	room  *Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := NewManualClock(epoch)
	n := newRecorder()
	reg := NewRegistry(Options{Clock: clock, Notifier: n})
	return &fixture{reg: reg, clock: clock, n: n}
}

// withRoom installs a lobby under a fixed code hosted by "host".
func (f *fixture) withRoom(t *testing.T, code string) *Room {
	t.Helper()
	f.reg.mu.Lock()
	r := newRoom(code, "host", "Quizmaster", "token-"+code, f.reg.deps)
	f.reg.rooms[code] = r
	f.reg.mu.Unlock()
	f.n.Join(code, "host")
	f.room = r
	return r
}

// join adds player id on connection "c-"+id and puts them on team.
func (f *fixture) join(t *testing.T, id string, team TeamKey) {
	t.Helper()
	got, err := f.room.Join("c-"+id, id, id)
	require.NoError(t, err)
	require.Equal(t, id, got)
	if team != "" {
		require.NoError(t, f.room.AssignPlayer("host", id, team))
	}
}

func (f *fixture) started(t *testing.T, code string, teams map[string]TeamKey, order ...string) *Room {
	t.Helper()
	r := f.withRoom(t, code)
	for _, id := range order {
		f.join(t, id, teams[id])
	}
	require.NoError(t, r.StartGame("host"))
	return r
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

func isHost(r *Room, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostOnlyLocked(connID) == nil
}
