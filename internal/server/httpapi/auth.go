package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
)

type ctxKeyIdentity struct{}

func identityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(*auth.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return strings.TrimSpace(h[len(common.BearerPrefix):])
	}
	return ""
}

// solveToken prefers the query parameter, which is all browsers can send on
// a WebSocket handshake.
func solveToken(r *http.Request) string {
	if t := r.URL.Query().Get(common.AccessTokenQueryParam); t != "" {
		return t
	}
	return bearerToken(r)
}

func (h *Handler) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.verifier.Verify(bearerToken(r))
		if err != nil || identity.IsRefresh() {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity{}, identity)))
	})
}

func (h *Handler) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromContext(r.Context())
			if !ok || identity.Role != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
