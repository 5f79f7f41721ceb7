package game

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

type State string

const (
	StateLobby   State = "lobby"
	StateInRound State = "inRound"
	StateSummary State = "summary"
)

type TeamKey string

const (
	TeamA TeamKey = "A"
	TeamB TeamKey = "B"
)

var teamKeys = [...]TeamKey{TeamA, TeamB}

// ParseTeamKey accepts "A" or "B".
func ParseTeamKey(s string) (TeamKey, bool) {
	switch TeamKey(s) {
	case TeamA, TeamB:
		return TeamKey(s), true
	}
	return "", false
}

// Outbound event names.
const (
	EventRoomUpdate  = "room:update"
	EventRoomEnded   = "room:ended"
	EventKicked      = "player:kicked"
	EventRoomCreated = "host:roomCreated"
)

// Reasons carried by EventRoomEnded.
const (
	ReasonIdleTimeout = "idle-timeout"
	ReasonHostLeft    = "host-left"
)

const (
	maxPlayerName   = 24
	maxTeamName     = 32
	defaultHostName = "Host"
	defaultPlayer   = "Player"
)

// Notifier is the transport seen from a room: multicast to the room's
// members, targeted sends to one connection, and group membership. Calls are
// made while the room is locked and must not block.
type Notifier interface {
	Broadcast(code, event string, body any)
	Send(connID, event string, body any)
	Join(code, connID string)
	Leave(code, connID string)
	Close(code string)
}

// Timing holds the durations that drive a room.
type Timing struct {
	Lock        time.Duration
	Decision    time.Duration
	IdleTimeout time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Lock:        20 * time.Second,
		Decision:    15 * time.Second,
		IdleTimeout: 30 * time.Minute,
	}
}

type Team struct {
	Name     string
	Players  []string
	HotIndex int
	Score    int
}

func (t *Team) remove(id string) {
	for i, pid := range t.Players {
		if pid == id {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			return
		}
	}
}

type Player struct {
	ID        string
	Name      string
	Team      TeamKey
	ConnID    string
	Connected bool
	Points    int
}

type roomTimer struct {
	t   Timer
	seq uint64
}

// Room is one game session. Every exported method takes the room's lock for
// its whole duration, timer callbacks included, so a room is only ever
// mutated by one operation at a time.
type Room struct {
	mu sync.Mutex

	code      string
	hostConn  string
	hostName  string
	hostToken string
	createdAt time.Time
	touchedAt time.Time

	state   State
	round   int
	teams   map[TeamKey]*Team
	players map[string]*Player
	joined  []string

	queue            []string
	hotSeats         map[TeamKey]string
	buzzLockedUntil  time.Time
	currentBuzz      string
	decisionDeadline time.Time

	unlock   *roomTimer
	decision *roomTimer
	timerSeq uint64
	closed   bool

	clock    Clock
	notifier Notifier
	journal  Journal
	timing   Timing
}

func newRoom(code, hostConn, hostName, hostToken string, d deps) *Room {
	now := d.clock.Now()
	return &Room{
		code:      code,
		hostConn:  hostConn,
		hostName:  cleanName(hostName, defaultHostName, maxPlayerName),
		hostToken: hostToken,
		createdAt: now,
		touchedAt: now,
		state:     StateLobby,
		teams: map[TeamKey]*Team{
			TeamA: {Name: "Team A"},
			TeamB: {Name: "Team B"},
		},
		players:  make(map[string]*Player),
		hotSeats: make(map[TeamKey]string, 2),
		clock:    d.clock,
		notifier: d.notifier,
		journal:  d.journal,
		timing:   d.timing,
	}
}

func (r *Room) Code() string { return r.code }

// HostToken is handed to the creating host so it can reclaim the room later.
func (r *Room) HostToken() string { return r.hostToken }

func (r *Room) touchLocked() { r.touchedAt = r.clock.Now() }

func (r *Room) broadcastLocked() {
	r.notifier.Broadcast(r.code, EventRoomUpdate, r.snapshotLocked())
}

func (r *Room) hostOnlyLocked(connID string) error {
	if r.closed {
		return ErrRoomNotFound
	}
	if connID == "" || connID != r.hostConn {
		return ErrUnauthorized
	}
	return nil
}

func (r *Room) inQueueLocked(id string) bool {
	for _, q := range r.queue {
		if q == id {
			return true
		}
	}
	return false
}

func (r *Room) isHotSeatLocked(id string) bool {
	return r.hotSeats[TeamA] == id || r.hotSeats[TeamB] == id
}

// end cancels the room's timers, tells members why it ended and drops the
// multicast group. Further operations on the room fail with ErrRoomNotFound.
func (r *Room) endLocked(reason string) {
	if r.closed {
		return
	}
	r.cancelTimersLocked()
	r.closed = true
	if reason != "" {
		r.notifier.Broadcast(r.code, EventRoomEnded, RoomEnded{Code: r.code, Reason: reason})
	}
	r.notifier.Close(r.code)
	r.journal.DeleteRoom(r.code)
}

type RoomEnded struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// cleanName trims s and caps it at limit runes, falling back to def when
// nothing is left.
func cleanName(s, def string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > limit {
		s = strings.TrimSpace(string([]rune(s)[:limit]))
	}
	if s == "" {
		return def
	}
	return s
}
