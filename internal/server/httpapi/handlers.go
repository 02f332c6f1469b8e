package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	token := solveToken(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	ws := newWSConn(conn, h.opts.MaxMessageBytes, cancel)
	h.sessions.Serve(ctx, ws, token)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken required")
		return
	}

	access, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			h.logger.Error(r.Context(), "refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}

type entitlementResponse struct {
	Credits               int64      `json:"credits"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
}

type meResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
	entitlementResponse
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	user, err := h.identity.FetchUser(r.Context(), identity.SubjectID)
	if err == nil {
		var e models.Entitlement
		if e, err = h.ledger.Balance(r.Context(), user.ID); err == nil {
			writeJSON(w, http.StatusOK, meResponse{
				ID:                  user.ID,
				Email:               user.Email,
				Name:                user.Name,
				Role:                user.Role,
				CreatedAt:           user.CreatedAt,
				LastLogin:           user.LastLogin,
				entitlementResponse: entitlementResponse{Credits: e.Credits, SubscriptionExpiresAt: e.SubscriptionExpiresAt},
			})
			return
		}
	}

	if errors.Is(err, common.ErrorNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error(r.Context(), "profile lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

type grantRequest struct {
	UserID           string `json:"userId"`
	Credits          int64  `json:"credits"`
	SubscriptionDays int    `json:"subscriptionDays"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	e, err := h.ledger.Grant(r.Context(), req.UserID, req.Credits, req.SubscriptionDays)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "credits and subscriptionDays must be non-negative and not both zero")
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			h.logger.Error(r.Context(), "grant failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	identity, _ := identityFromContext(r.Context())
	h.logger.Info(r.Context(), "grant applied", "by", identity.SubjectID, "user_id", req.UserID)
	writeJSON(w, http.StatusOK, entitlementResponse{Credits: e.Credits, SubscriptionExpiresAt: e.SubscriptionExpiresAt})
}
