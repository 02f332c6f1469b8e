// Package session runs one client connection through authentication and a
// sequence of solve requests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
	"github.com/dmitrijs2005/mathsolver/internal/server/inputs"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/provider"
	"github.com/dmitrijs2005/mathsolver/internal/server/relay"
	"github.com/google/uuid"
)

// Conn is a message-oriented, full-duplex client connection. ReceiveMessage
// blocks until a frame arrives, the peer goes away or ctx is done.
// recordTimeout bounds the write of a completed solve. The write does not
// follow session cancellation: the credit is already spent.
const recordTimeout = 30 * time.Second

type Conn interface {
	ReceiveMessage(ctx context.Context) ([]byte, error)
	SendText(ctx context.Context, text string) error
	Close() error
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, *models.User, error)
}

type Ledger interface {
	CheckAndDebit(ctx context.Context, userID string) (models.Debit, error)
}

type Relay interface {
	Relay(ctx context.Context, in provider.Input, sink relay.Sink) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, userID string, img inputs.Image, outputText string) (string, error)
}

type Options struct {
	Prompt        string
	MaxImageBytes int
}

// Session is the per-connection state. It is owned by the goroutine running
// Controller.Serve.
type Session struct {
	ID       string
	Identity *auth.Identity
	User     *models.User
	State    State
}

type Controller struct {
	auth     Authenticator
	ledger   Ledger
	relay    Relay
	recorder Recorder
	opts     Options
	logger   logging.Logger
}

func NewController(a Authenticator, l Ledger, r Relay, rec Recorder, opts Options, logger logging.Logger) *Controller {
	return &Controller{
		auth:     a,
		ledger:   l,
		relay:    r,
		recorder: rec,
		opts:     opts,
		logger:   logger.With("module", "session"),
	}
}

// Serve drives conn until the client disconnects or authentication fails.
// It closes conn before returning and returns the final session.
func (c *Controller) Serve(ctx context.Context, conn Conn, token string) *Session {
	s := &Session{ID: uuid.NewString(), State: StateConnecting}
	log := c.logger.With("session_id", s.ID)

	defer func() {
		s.State = StateClosed
		_ = conn.Close()
	}()

	s.State = StateAuthenticating
	if !c.authenticate(ctx, conn, s, token, log) {
		return s
	}

	log = log.With("user_id", s.User.ID)
	log.Info(ctx, "session opened")

	for {
		s.State = StateIdle
		frame, err := conn.ReceiveMessage(ctx)
		if err != nil {
			log.Info(ctx, "session closed", "reason", err)
			return s
		}

		img, ok := c.validate(ctx, conn, frame, log)
		if !ok {
			continue
		}

		s.State = StateSolving
		if !c.solve(ctx, conn, s, img, log) {
			return s
		}
	}
}

func (c *Controller) authenticate(ctx context.Context, conn Conn, s *Session, token string, log logging.Logger) bool {
	identity, user, err := c.auth.Authenticate(ctx, token)
	if err == nil {
		s.Identity = identity
		s.User = user
		return true
	}

	msg := MsgInternal
	switch {
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		msg = MsgUnauthorized
		log.Info(ctx, "authentication rejected", "error", err)
	case errors.Is(err, common.ErrorNotFound):
		msg = MsgUserNotFound
		if identity != nil {
			log = log.With("subject", identity.SubjectID)
		}
		log.Info(ctx, "token subject has no account")
	default:
		log.Error(ctx, "authentication failed", "error", err)
	}

	_ = conn.SendText(ctx, msg)
	return false
}

// validate answers malformed requests itself and reports whether a solve
// should run.
func (c *Controller) validate(ctx context.Context, conn Conn, frame []byte, log logging.Logger) (inputs.Image, bool) {
	req, err := ParseRequest(frame)
	if err != nil {
		var fe *RequestFormatError
		msg := MsgInternal
		switch {
		case errors.As(err, &fe):
			msg = MsgInvalidFormat
		case errors.Is(err, ErrUnknownAction):
			msg = MsgUnknownAction
		case errors.Is(err, ErrImageRequired):
			msg = MsgImageRequired
		}
		log.Debug(ctx, "request rejected", "error", err)
		_ = conn.SendText(ctx, msg)
		return inputs.Image{}, false
	}

	img, err := inputs.Decode(req.Image, c.opts.MaxImageBytes)
	if err != nil {
		msg := MsgImageNotBase64
		if errors.Is(err, inputs.ErrTooLarge) {
			msg = MsgImageTooLarge
		}
		log.Debug(ctx, "image rejected", "error", err)
		_ = conn.SendText(ctx, msg)
		return inputs.Image{}, false
	}

	return img, true
}

// solve runs one paid request. It returns false when the session must end.
func (c *Controller) solve(ctx context.Context, conn Conn, s *Session, img inputs.Image, log logging.Logger) bool {
	debit, err := c.ledger.CheckAndDebit(ctx, s.User.ID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Error(ctx, "entitlement check failed", "error", err)
		return conn.SendText(ctx, MsgInternal) == nil
	}

	switch debit.Outcome {
	case models.DebitInsufficient:
		return conn.SendText(ctx, MsgNoCredits) == nil
	case models.DebitUserNotFound:
		log.Warn(ctx, "account vanished during session")
		_ = conn.SendText(ctx, MsgUserNotFound)
		return false
	}

	log.Debug(ctx, "solve started", "source", debit.Source.String(), "credits_left", debit.Remaining.Credits)

	text, err := c.relay.Relay(ctx, provider.Input{Prompt: c.opts.Prompt, Image: img}, func(ctx context.Context, chunk string) error {
		return conn.SendText(ctx, chunk)
	})
	if err != nil {
		var pe *relay.ProviderError
		if errors.As(err, &pe) {
			log.Warn(ctx, "provider failed", "error", pe.Message, "source", debit.Source.String())
			return conn.SendText(ctx, ProviderErrorPrefix+pe.Message) == nil
		}
		log.Info(ctx, "solve abandoned", "error", err)
		return false
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if _, err := c.recorder.Record(rctx, s.User.ID, img, text); err != nil {
		log.Error(ctx, "solve not recorded",
			"kind", "persistence",
			"input_ref", inputs.DigestRef(img.Data),
			"output_len", len(text),
			"error", err)
	}

	return conn.SendText(ctx, DoneMarker) == nil
}
