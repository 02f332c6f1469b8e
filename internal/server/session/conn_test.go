package session

import (
	"context"
	"errors"
	"io"
	"sync"
)

var errBrokenPipe = errors.New("write: broken pipe")

// fakeConn feeds queued frames to the controller and records what it sends.
// Once the queue is drained ReceiveMessage reports io.EOF, like a client
// that hung up.
type fakeConn struct {
	mu       sync.Mutex
	inbound  [][]byte
	sent     []string
	failSend int
	closed   bool
	// afterSend, when set, runs after each successful send.
	afterSend func(text string)
}

func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{}
	for _, f := range frames {
		c.inbound = append(c.inbound, []byte(f))
	}
	return c
}

func (c *fakeConn) ReceiveMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return nil, io.EOF
	}
	f := c.inbound[0]
	c.inbound = c.inbound[1:]
	return f, nil
}

// SendText fails from the failSend-th call on when failSend is set.
func (c *fakeConn) SendText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend > 0 && len(c.sent)+1 >= c.failSend {
		return errBrokenPipe
	}
	c.sent = append(c.sent, text)
	if c.afterSend != nil {
		c.afterSend(text)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}
