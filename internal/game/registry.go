package game

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CodeStyle string

const (
	CodeNumeric CodeStyle = "numeric"
	CodeAlnum   CodeStyle = "alnum"
)

const (
	codeLength      = 4
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts = 64
)

type Options struct {
	Clock     Clock
	Notifier  Notifier
	Journal   Journal
	Timing    Timing
	CodeStyle CodeStyle
}

type deps struct {
	clock    Clock
	notifier Notifier
	journal  Journal
	timing   Timing
}

// Registry owns every live room by code. The map is guarded by mu; a room's
// own lock is always taken after mu, never before.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	deps      deps
	codeStyle CodeStyle
}

type RoomCreated struct {
	Code string `json:"code"`
}

func NewRegistry(opts Options) *Registry {
	d := deps{
		clock:    opts.Clock,
		notifier: opts.Notifier,
		journal:  opts.Journal,
		timing:   opts.Timing,
	}
	if d.clock == nil {
		d.clock = SystemClock()
	}
	if d.notifier == nil {
		panic("game: registry needs a notifier")
	}
	if d.journal == nil {
		d.journal = nopJournal{}
	}
	def := DefaultTiming()
	if d.timing.Lock <= 0 {
		d.timing.Lock = def.Lock
	}
	if d.timing.Decision <= 0 {
		d.timing.Decision = def.Decision
	}
	if d.timing.IdleTimeout <= 0 {
		d.timing.IdleTimeout = def.IdleTimeout
	}
	style := opts.CodeStyle
	if style != CodeAlnum {
		style = CodeNumeric
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		deps:      d,
		codeStyle: style,
	}
}

// NormalizeCode is the form codes are stored under.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (g *Registry) randomCode() string {
	if g.codeStyle == CodeNumeric {
		return strconv.Itoa(1000 + rand.IntN(9000))
	}
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

func (g *Registry) newCodeLocked() (string, error) {
	for range maxCodeAttempts {
		code := g.randomCode()
		if _, taken := g.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrNoCodeAvailable
}

// Create opens a lobby hosted by hostConn under a fresh code.
func (g *Registry) Create(hostConn, hostName string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code, err := g.newCodeLocked()
	if err != nil {
		zap.L().Warn("room.create_failed", zap.Int("rooms", len(g.rooms)), zap.Error(err))
		return nil, err
	}
	r := newRoom(code, hostConn, hostName, uuid.NewString(), g.deps)
	g.rooms[code] = r

	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier.Join(code, hostConn)
	r.journal.SaveRoom(r.roomRecordLocked())
	r.notifier.Send(hostConn, EventRoomCreated, RoomCreated{Code: code})
	r.broadcastLocked()
	zap.L().Info("room.created", zap.String("code", code), zap.String("host", r.hostName))
	return r, nil
}

func (g *Registry) Get(code string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// forget drops code from the map if it still points at r.
func (g *Registry) forget(code string, r *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rooms[code] == r {
		delete(g.rooms, code)
	}
}

// Delete ends a room, cancelling its timers. A non-empty reason is sent to
// the members first. It reports whether the room was live.
func (g *Registry) Delete(code, reason string) bool {
	r, err := g.Get(code)
	if err != nil {
		return false
	}
	return g.end(r, reason, nil)
}

// end tears r down if it is still live and cond, checked under the room
// lock, holds. It is the only path that removes a room from the map.
func (g *Registry) end(r *Room, reason string, cond func(*Room) bool) bool {
	r.mu.Lock()
	if r.closed || (cond != nil && !cond(r)) {
		r.mu.Unlock()
		return false
	}
	r.endLocked(reason)
	r.mu.Unlock()
	g.forget(r.code, r)
	zap.L().Info("room.deleted", zap.String("code", r.code), zap.String("reason", reason))
	return true
}

// Disconnect reconciles a closed connection with one room: the host leaving
// ends the room, a player leaving is marked disconnected.
func (g *Registry) Disconnect(code, connID string) {
	r, err := g.Get(code)
	if err != nil {
		return
	}
	if g.end(r, ReasonHostLeft, func(r *Room) bool { return r.hostOnlyLocked(connID) == nil }) {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.disconnectLocked(connID)
	}
	r.mu.Unlock()
}

// Sweep ends every room idle for longer than the idle timeout and returns
// their codes. Activity between the scan and the teardown spares a room.
func (g *Registry) Sweep() []string {
	g.mu.RLock()
	live := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		live = append(live, r)
	}
	g.mu.RUnlock()

	cutoff := g.deps.clock.Now().Add(-g.deps.timing.IdleTimeout)
	idle := func(r *Room) bool { return r.touchedAt.Before(cutoff) }
	var swept []string
	for _, r := range live {
		if g.end(r, ReasonIdleTimeout, idle) {
			swept = append(swept, r.code)
		}
	}
	if len(swept) > 0 {
		zap.L().Info("room.swept", zap.Strings("codes", swept), zap.Int("remaining", g.Len()))
	}
	return swept
}

// RunSweeper calls Sweep every interval until ctx is done.
func (g *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				g.Sweep()
			}
		}
	}()
}

// Dumps copies every live room for persistence.
func (g *Registry) Dumps() []RoomDump {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]RoomDump, 0, len(g.rooms))
	for _, r := range g.rooms {
		r.mu.Lock()
		if !r.closed {
			out = append(out, r.dumpLocked())
		}
		r.mu.Unlock()
	}
	return out
}

// Restore rebuilds rooms from persisted dumps, skipping codes already live.
// It returns how many rooms were restored.
func (g *Registry) Restore(dumps []RoomDump) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, d := range dumps {
		code := NormalizeCode(d.Room.Code)
		if code == "" {
			continue
		}
		if _, taken := g.rooms[code]; taken {
			continue
		}
		d.Room.Code = code
		g.rooms[code] = restoreRoom(d, g.deps)
		n++
	}
	if n > 0 {
		zap.L().Info("room.restored", zap.Int("rooms", n))
	}
	return n
}
