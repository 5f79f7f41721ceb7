package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 64

// clientConn is one accepted websocket. Frames reach the socket only through
// send, drained by writePump, so the socket has a single writer.
type clientConn struct {
	id      string
	rawConn *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

func newClientConn(id string, rawConn *websocket.Conn) *clientConn {
	return &clientConn{
		id:      id,
		rawConn: rawConn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

// enqueue never blocks. A client whose buffer is full is not keeping up and
// gets disconnected.
func (c *clientConn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		zap.L().Warn("ws.slow_client", zap.String("conn", c.id))
		c.close()
		return false
	}
}

func (c *clientConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.rawConn.Close()
	})
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.L().Debug("ws.write", zap.String("conn", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				zap.L().Debug("ws.ping", zap.String("conn", c.id), zap.Error(err))
				return
			}
		}
	}
}
