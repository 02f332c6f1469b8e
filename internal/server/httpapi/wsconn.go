package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxPendingFrames is how many requests may queue behind a running solve.
	maxPendingFrames = 4
)

var (
	errConnClosed     = errors.New("websocket: connection closed")
	errTooManyPending = errors.New("websocket: too many pending requests")
)

// wsConn adapts a gorilla connection to session.Conn. A read pump goroutine
// owns all reads and queues frames for ReceiveMessage. It never blocks on the
// queue, so it is always inside ReadMessage and sees the peer leave even
// while a solve is running. Writes are serialised by writeMu because gorilla
// allows one concurrent writer.
type wsConn struct {
	conn   *websocket.Conn
	frames chan []byte
	// readErr is set before frames is closed.
	readErr error
	// onPeerGone is called when the read side fails or a ping cannot be
	// written. It may be called more than once.
	onPeerGone context.CancelFunc

	writeMu   sync.Mutex
	stop      chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, readLimit int64, onPeerGone context.CancelFunc) *wsConn {
	c := &wsConn{
		conn:       conn,
		frames:     make(chan []byte, maxPendingFrames),
		onPeerGone: onPeerGone,
		stop:       make(chan struct{}),
	}
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.pingLoop()
	return c
}

func (c *wsConn) readPump() {
	defer func() {
		close(c.frames)
		if c.onPeerGone != nil {
			c.onPeerGone()
		}
	}()

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}

		select {
		case c.frames <- msg:
		case <-c.stop:
			c.readErr = errConnClosed
			return
		default:
			c.readErr = errTooManyPending
			c.writeMu.Lock()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many pending requests"), time.Now().Add(writeWait))
			c.writeMu.Unlock()
			return
		}
	}
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				if c.onPeerGone != nil {
					c.onPeerGone()
				}
				return
			}
		}
	}
}

func (c *wsConn) ReceiveMessage(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.frames:
		if !ok {
			return nil, c.readErr
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *wsConn) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends a normal close frame and drops the connection. It is safe to
// call more than once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
