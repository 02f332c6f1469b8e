// Package solve is the client side of the solve socket: it dials the
// server, sends one image per request and streams the answer back.
package solve

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/netx"
	"github.com/gorilla/websocket"
)

const (
	defaultPath      = "/ws/solve"
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// ErrClosed is returned once the server has closed the session.
var ErrClosed = errors.New("solve session closed")

// ServerError is an error frame sent by the server, without its prefix.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// Session is one open solve socket. Solve calls must not overlap.
type Session struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closed    bool
}

type request struct {
	Action string `json:"action"`
	Image  string `json:"image"`
}

// Dial opens a solve socket at serverURL, authenticating with token. A
// serverURL with no path gets the default solve path.
func Dial(ctx context.Context, serverURL, token string) (*Session, error) {
	u, err := socketURL(serverURL, token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", serverURL, err)
	}
	return &Session{conn: conn}, nil
}

func socketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultPath
	}
	if token != "" {
		q := u.Query()
		q.Set(common.AccessTokenQueryParam, token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Solve sends image and calls onChunk for every piece of the answer as it
// arrives. It returns the whole answer once the done marker is received.
// An error frame from the server is returned as *ServerError.
//
// Frames are untagged text, so an answer chunk that equals the done marker
// or starts with the error prefix is read as that control frame.
func (s *Session) Solve(ctx context.Context, image []byte, onChunk func(string)) (string, error) {
	if s.closed {
		return "", ErrClosed
	}

	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := s.conn.WriteJSON(request{
		Action: "solve",
		Image:  base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", s.wrap(ctx, err)
	}

	var answer strings.Builder
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return "", s.wrap(ctx, err)
		}

		frame := string(data)
		switch {
		case frame == common.SolveDoneMarker:
			return answer.String(), nil
		case strings.HasPrefix(frame, common.SolveErrorPrefix):
			return "", &ServerError{Message: strings.TrimPrefix(frame, common.SolveErrorPrefix)}
		default:
			answer.WriteString(frame)
			if onChunk != nil {
				onChunk(frame)
			}
		}
	}
}

func (s *Session) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.closed = true
		return ctxErr
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		s.closed = true
		return ErrClosed
	}
	return err
}

// Close sends a normal close frame and releases the connection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

// RefreshAccessToken trades a refresh token for a new access token using
// the HTTP side of the server at serverURL.
func RefreshAccessToken(ctx context.Context, client *http.Client, serverURL, refreshToken string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/auth/refresh"
	u.RawQuery = ""

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	in := map[string]string{"refreshToken": refreshToken}
	if err := netx.PostJSON(ctx, client, u.String(), in, &out); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh token: empty access token in response")
	}
	return out.AccessToken, nil
}
