package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
	"github.com/dmitrijs2005/mathsolver/internal/server/inputs"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/provider/providertest"
	"github.com/dmitrijs2005/mathsolver/internal/server/relay"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mathsolver/internal/server/services"
	"github.com/dmitrijs2005/mathsolver/internal/server/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("httpapi-test-secret")

type testServer struct {
	*httptest.Server
	manager  *repomanager.InMemoryRepositoryManager
	provider *providertest.Scripted
	cancel   context.CancelFunc
}

func newTestServer(t *testing.T, steps ...providertest.Step) *testServer {
	t.Helper()

	m := repomanager.NewInMemoryRepositoryManager()
	p := &providertest.Scripted{Steps: steps}
	verifier := auth.NewVerifier(secret)
	identity := services.NewIdentityService(m, verifier, auth.NewIssuer(secret, time.Minute, time.Hour), nil, logging.Nop{})
	ledger := services.NewLedgerService(m, logging.Nop{})
	recorder := services.NewRecorderService(m, inputs.DigestStore{}, 0, logging.Nop{})
	controller := session.NewController(identity, ledger, relay.New(p, 5*time.Second, logging.Nop{}), recorder,
		session.Options{Prompt: "solve", MaxImageBytes: 1 << 20}, logging.Nop{})

	base, cancel := context.WithCancel(context.Background())
	h := NewHandler(base, controller, identity, ledger, verifier, Options{MaxMessageBytes: 2 << 20}, logging.Nop{})

	srv := httptest.NewServer(h.Router())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{Server: srv, manager: m, provider: p, cancel: cancel}
}

func (s *testServer) user(t *testing.T, role string, credits int64) (*models.User, string) {
	t.Helper()
	u, err := s.manager.Users().Create(context.Background(), &models.User{
		Email:       fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		Role:        role,
		Entitlement: models.Entitlement{Credits: credits},
	})
	require.NoError(t, err)
	tok, err := auth.GenerateToken(u.ID, role, "", secret, time.Minute)
	require.NoError(t, err)
	return u, tok
}

func (s *testServer) wsURL(path, token string) string {
	u := "ws" + strings.TrimPrefix(s.URL, "http") + path
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func solveFrame() []byte {
	img := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	return []byte(fmt.Sprintf(`{"action":"solve","image":%q}`, img))
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	typ, msg, err := c.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	return string(msg)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK", body["status"])
}

func TestSolveSocket_StreamsAndCompletes(t *testing.T) {
	s := newTestServer(t, providertest.Step{Delta: "2"}, providertest.Step{Delta: "+2=4"})
	u, tok := s.user(t, common.RoleUser, 1)

	for _, path := range []string{"/ws/solve", "/ws/calculate"} {
		t.Run(path, func(t *testing.T) {
			_, err := s.manager.Entitlements().Mutate(context.Background(), u.ID, func(e *models.Entitlement) (bool, error) {
				e.Credits = 1
				return true, nil
			})
			require.NoError(t, err)

			c, _, err := websocket.DefaultDialer.Dial(s.wsURL(path, tok), nil)
			require.NoError(t, err)
			defer c.Close()

			require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
			assert.Equal(t, "2", readText(t, c))
			assert.Equal(t, "+2=4", readText(t, c))
			assert.Equal(t, session.DoneMarker, readText(t, c))

			require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
			assert.Equal(t, session.MsgNoCredits, readText(t, c))
		})
	}

	list, err := s.manager.Results().ListByUser(context.Background(), u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSolveSocket_BearerHeader(t *testing.T) {
	s := newTestServer(t, providertest.Step{Delta: "4"})
	_, tok := s.user(t, common.RoleUser, 1)

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+tok)
	c, _, err := websocket.DefaultDialer.Dial(s.wsURL("/ws/solve", ""), hdr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
	assert.Equal(t, "4", readText(t, c))
	assert.Equal(t, session.DoneMarker, readText(t, c))
}

func TestSolveSocket_Unauthorized(t *testing.T) {
	s := newTestServer(t)

	c, _, err := websocket.DefaultDialer.Dial(s.wsURL("/ws/solve", "bogus"), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, session.MsgUnauthorized, readText(t, c))

	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSolveSocket_DisconnectCancelsRelay(t *testing.T) {
	s := newTestServer(t, providertest.Step{Delta: "a"}, providertest.Step{Delta: "b", Delay: 3 * time.Second})
	u, tok := s.user(t, common.RoleUser, 1)

	c, _, err := websocket.DefaultDialer.Dial(s.wsURL("/ws/solve", tok), nil)
	require.NoError(t, err)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
	assert.Equal(t, "a", readText(t, c))
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool { return s.provider.Closed() == 1 }, 2*time.Second, 10*time.Millisecond)

	list, err := s.manager.Results().ListByUser(context.Background(), u.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSolveSocket_DisconnectWithQueuedRequestCancelsRelay(t *testing.T) {
	s := newTestServer(t, providertest.Step{Delta: "a"}, providertest.Step{Delta: "b", Delay: 4 * time.Second})
	u, tok := s.user(t, common.RoleUser, 2)

	c, _, err := websocket.DefaultDialer.Dial(s.wsURL("/ws/solve", tok), nil)
	require.NoError(t, err)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
	require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
	assert.Equal(t, "a", readText(t, c))
	require.NoError(t, c.Close())

	start := time.Now()
	require.Eventually(t, func() bool { return s.provider.Closed() == 1 }, time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, s.provider.Calls(), "the queued request is never started")

	list, err := s.manager.Results().ListByUser(context.Background(), u.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSolveSocket_TooManyQueuedRequests(t *testing.T) {
	s := newTestServer(t, providertest.Step{Delta: "a"}, providertest.Step{Delta: "b", Delay: 4 * time.Second})
	_, tok := s.user(t, common.RoleUser, 1)

	c, _, err := websocket.DefaultDialer.Dial(s.wsURL("/ws/solve", tok), nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
	assert.Equal(t, "a", readText(t, c))
	for i := 0; i <= maxPendingFrames; i++ {
		require.NoError(t, c.WriteMessage(websocket.TextMessage, solveFrame()))
	}

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	require.Eventually(t, func() bool { return s.provider.Closed() == 1 }, time.Second, 10*time.Millisecond)
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)
	u, access := s.user(t, common.RoleUser, 0)
	refresh, err := auth.GenerateToken(u.ID, "", common.TokenTypeRefresh, secret, time.Hour)
	require.NoError(t, err)

	resp := postJSON(t, s.URL+"/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out refreshResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	id, err := auth.NewVerifier(secret).Verify(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.SubjectID)

	resp = postJSON(t, s.URL+"/auth/refresh", "", map[string]string{"refreshToken": access})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, s.URL+"/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	u, tok := s.user(t, common.RoleUser, 3)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/user/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, u.ID, out["id"])
	assert.Equal(t, float64(3), out["credits"])
	assert.Nil(t, out["subscriptionExpiresAt"])

	resp2, err := http.Get(s.URL + "/user/me")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestGrant(t *testing.T) {
	s := newTestServer(t)
	_, adminTok := s.user(t, common.RoleAdmin, 0)
	target, userTok := s.user(t, common.RoleUser, 0)

	resp := postJSON(t, s.URL+"/billing/grant", adminTok, map[string]any{"userId": target.ID, "credits": 10, "subscriptionDays": 30})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out entitlementResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(10), out.Credits)
	require.NotNil(t, out.SubscriptionExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *out.SubscriptionExpiresAt, time.Minute)

	resp = postJSON(t, s.URL+"/billing/grant", userTok, map[string]any{"userId": target.ID, "credits": 10})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, s.URL+"/billing/grant", "", map[string]any{"userId": target.ID, "credits": 10})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, s.URL+"/billing/grant", adminTok, map[string]any{"userId": target.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, s.URL+"/billing/grant", adminTok, map[string]any{"userId": "ghost", "credits": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws/solve?token=q", nil)
	r.Header.Set("Authorization", "bearer h")
	assert.Equal(t, "q", solveToken(r))
	assert.Equal(t, "h", bearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws/solve", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", solveToken(r))
}
