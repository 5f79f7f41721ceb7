package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub knows every live connection by id and the multicast group of every
// room code. It is the transport side of game.Notifier: all methods only
// enqueue and never block on a socket.
type Hub struct {
	clients sync.Map // connID -> *clientConn
	groups  sync.Map // room code -> *group
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) register(c *clientConn) { h.clients.Store(c.id, c) }

// unregister forgets c and drops it from every group it was in.
func (h *Hub) unregister(c *clientConn) {
	h.clients.CompareAndDelete(c.id, c)
	h.groups.Range(func(_, v any) bool {
		v.(*group).remove(c)
		return true
	})
}

func (h *Hub) client(connID string) (*clientConn, bool) {
	v, ok := h.clients.Load(connID)
	if !ok {
		return nil, false
	}
	return v.(*clientConn), true
}

func encode(event string, body any) ([]byte, bool) {
	msg, err := json.Marshal(frame{Event: event, Body: body})
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return msg, true
}

func (h *Hub) Broadcast(code, event string, body any) {
	v, ok := h.groups.Load(code)
	if !ok {
		return
	}
	if msg, ok := encode(event, body); ok {
		v.(*group).broadcast(msg)
	}
}

func (h *Hub) Send(connID, event string, body any) {
	c, ok := h.client(connID)
	if !ok {
		return
	}
	if msg, ok := encode(event, body); ok {
		c.enqueue(msg)
	}
}

func (h *Hub) Join(code, connID string) {
	c, ok := h.client(connID)
	if !ok {
		return
	}
	g, _ := h.groups.LoadOrStore(code, newGroup())
	g.(*group).add(c)
}

func (h *Hub) Leave(code, connID string) {
	c, ok := h.client(connID)
	if !ok {
		return
	}
	if v, ok := h.groups.Load(code); ok {
		v.(*group).remove(c)
	}
}

// Close drops the group for code. Its connections stay open.
func (h *Hub) Close(code string) { h.groups.Delete(code) }

// members reports how many connections are subscribed to code.
func (h *Hub) members(code string) int {
	v, ok := h.groups.Load(code)
	if !ok {
		return 0
	}
	return v.(*group).size()
}
