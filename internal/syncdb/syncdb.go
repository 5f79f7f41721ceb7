// Package syncdb moves room records from the game to a durable store without
// ever blocking a room: journal calls are queued on a bounded channel and a
// single writer goroutine applies them in order.
package syncdb

import (
	"context"
	"sync"
	"time"

	"buzzin/internal/game"

	"go.uber.org/zap"
)

// Store is a durable home for room records.
type Store interface {
	SaveRoom(ctx context.Context, rec game.RoomRecord) error
	SavePlayer(ctx context.Context, rec game.PlayerRecord) error
	DeletePlayer(ctx context.Context, code, playerID string) error
	DeleteRoom(ctx context.Context, code string) error
	SaveRooms(ctx context.Context, dumps []game.RoomDump) error
	LoadRooms(ctx context.Context) ([]game.RoomDump, error)
}

const opTimeout = 1500 * time.Millisecond

type opKind int

const (
	opSaveRoom opKind = iota
	opSavePlayer
	opDeletePlayer
	opDeleteRoom
	opSaveRooms
)

func (k opKind) String() string {
	switch k {
	case opSaveRoom:
		return "save_room"
	case opSavePlayer:
		return "save_player"
	case opDeletePlayer:
		return "delete_player"
	case opDeleteRoom:
		return "delete_room"
	case opSaveRooms:
		return "save_rooms"
	}
	return "unknown"
}

type op struct {
	kind   opKind
	room   game.RoomRecord
	player game.PlayerRecord
	code   string
	id     string
	dumps  []game.RoomDump
}

// Writer implements game.Journal on top of a Store.
type Writer struct {
	store Store
	ops   chan op

	mu      sync.Mutex
	deleted map[string]struct{} // codes removed since their last save
}

var _ game.Journal = (*Writer)(nil)

func NewWriter(store Store, buffer int) *Writer {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Writer{
		store:   store,
		ops:     make(chan op, buffer),
		deleted: make(map[string]struct{}),
	}
}

func (w *Writer) enqueue(o op) {
	select {
	case w.ops <- o:
	default:
		zap.L().Warn("syncdb.queue_full", zap.Stringer("op", o.kind), zap.String("code", o.code))
	}
}

func (w *Writer) SaveRoom(rec game.RoomRecord) {
	w.mu.Lock()
	delete(w.deleted, rec.Code)
	w.mu.Unlock()
	w.enqueue(op{kind: opSaveRoom, room: rec, code: rec.Code})
}

func (w *Writer) SavePlayer(rec game.PlayerRecord) {
	w.enqueue(op{kind: opSavePlayer, player: rec, code: rec.RoomCode})
}

func (w *Writer) DeletePlayer(code, playerID string) {
	w.enqueue(op{kind: opDeletePlayer, code: code, id: playerID})
}

func (w *Writer) DeleteRoom(code string) {
	w.mu.Lock()
	w.deleted[code] = struct{}{}
	w.mu.Unlock()
	w.enqueue(op{kind: opDeleteRoom, code: code})
}

// Mirror queues a bulk save of dumps.
func (w *Writer) Mirror(dumps []game.RoomDump) {
	if len(dumps) == 0 {
		return
	}
	w.enqueue(op{kind: opSaveRooms, dumps: dumps})
}

// live drops dumps of rooms deleted after the dump was taken, so a late
// mirror cannot bring them back.
func (w *Writer) live(dumps []game.RoomDump) []game.RoomDump {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := dumps[:0:0]
	for _, d := range dumps {
		if _, gone := w.deleted[d.Room.Code]; !gone {
			out = append(out, d)
		}
	}
	return out
}

func (w *Writer) isDeleted(code string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, gone := w.deleted[code]
	return gone
}

func (w *Writer) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var err error
	switch o.kind {
	case opSaveRoom:
		err = w.store.SaveRoom(ctx, o.room)
	case opSavePlayer:
		if w.isDeleted(o.code) {
			return
		}
		err = w.store.SavePlayer(ctx, o.player)
	case opDeletePlayer:
		err = w.store.DeletePlayer(ctx, o.code, o.id)
	case opDeleteRoom:
		err = w.store.DeleteRoom(ctx, o.code)
	case opSaveRooms:
		dumps := w.live(o.dumps)
		if len(dumps) == 0 {
			return
		}
		err = w.store.SaveRooms(ctx, dumps)
	}
	if err != nil {
		zap.L().Error("syncdb.write", zap.Stringer("op", o.kind), zap.String("code", o.code), zap.Error(err))
	}
}

// Run applies queued writes until ctx is done, then flushes whatever is
// still queued and returns.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case o := <-w.ops:
			w.apply(o)
		}
	}
}

func (w *Writer) drain() {
	n := 0
	for {
		select {
		case o := <-w.ops:
			w.apply(o)
			n++
		default:
			if n > 0 {
				zap.L().Info("syncdb.flushed", zap.Int("ops", n))
			}
			return
		}
	}
}

// Dumper is what the mirror needs from the room registry.
type Dumper interface {
	Dumps() []game.RoomDump
}

// RunMirror queues a full copy of every live room every interval.
func RunMirror(ctx context.Context, rooms Dumper, w *Writer, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				w.Mirror(rooms.Dumps())
			}
		}
	}()
}

// Restore loads every persisted room into rooms and returns how many came back.
func Restore(ctx context.Context, store Store, rooms interface{ Restore([]game.RoomDump) int }) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dumps, err := store.LoadRooms(ctx)
	if err != nil {
		return 0, err
	}
	return rooms.Restore(dumps), nil
}
