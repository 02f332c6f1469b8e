// Package httpapi is the HTTP face of the server: the solve WebSocket and a
// handful of JSON endpoints around it.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

type SessionServer interface {
	Serve(ctx context.Context, conn session.Conn, token string) *session.Session
}

type Identity interface {
	FetchUser(ctx context.Context, id string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type Ledger interface {
	Grant(ctx context.Context, userID string, credits int64, days int) (models.Entitlement, error)
	Balance(ctx context.Context, userID string) (models.Entitlement, error)
}

type Options struct {
	// MaxMessageBytes bounds one inbound WebSocket frame.
	MaxMessageBytes int64
}

type Handler struct {
	sessions SessionServer
	identity Identity
	ledger   Ledger
	verifier *auth.Verifier
	opts     Options
	logger   logging.Logger

	// base outlives single requests; cancelling it ends every open session.
	base     context.Context
	upgrader websocket.Upgrader
}

func NewHandler(base context.Context, sessions SessionServer, identity Identity, ledger Ledger,
	verifier *auth.Verifier, opts Options, logger logging.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		identity: identity,
		ledger:   ledger,
		verifier: verifier,
		opts:     opts,
		logger:   logger.With("module", "httpapi"),
		base:     base,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are native apps and CLIs; browsers authenticate with a
			// token in the URL, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", h.handleHealth)

	r.Get("/ws/solve", h.handleSolve)
	r.Get("/ws/calculate", h.handleSolve)

	r.Post("/auth/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(h.requireBearer)
		r.Get("/user/me", h.handleMe)
		r.With(h.requireRole(common.RoleAdmin)).Post("/billing/grant", h.handleGrant)
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				h.logger.Error(r.Context(), "handler panic", "panic", p, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
