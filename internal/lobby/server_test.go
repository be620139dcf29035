package lobby

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/online"
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	store  *session.Store
	server *Server
	http   *httptest.Server
	wsURL  string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	store := session.NewStore()
	srv := NewServer(store, opts)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return &harness{
		store:  store,
		server: srv,
		http:   ts,
		wsURL:  "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

func (h *harness) dial(t *testing.T, name, address string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, h.wsURL, ClientOptions{PlayerName: name, Address: address, Heartbeat: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// await returns a sink and a function that blocks for its single completion.
func await(t *testing.T) (online.Sink, func() online.Completion) {
	ch := make(chan online.Completion, 1)
	return func(c online.Completion) { ch <- c }, func() online.Completion {
		t.Helper()
		select {
		case c := <-ch:
			return c
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for completion")
			return online.Completion{}
		}
	}
}

func host(t *testing.T, c *Client) online.Completion {
	t.Helper()
	sink, wait := await(t)
	require.NoError(t, c.CreateSession(online.CreateRequest{
		ID:          online.NewRequestID(),
		SessionName: session.DefaultName,
		Settings:    session.DefaultSettings(),
	}, sink))
	return wait()
}

func find(t *testing.T, c *Client) online.Completion {
	t.Helper()
	sink, wait := await(t)
	require.NoError(t, c.FindSessions(online.FindRequest{ID: online.NewRequestID(), Search: session.DefaultSearch()}, sink))
	return wait()
}

func TestHostFindJoin(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "10.0.0.5:7777")
	bob := h.dial(t, "Bob", "")

	created := host(t, alice)
	require.True(t, created.Success, "create: %v", created.Err)
	assert.Equal(t, online.OpCreate, created.Op)

	ns, ok := alice.NamedSession(session.DefaultName)
	require.True(t, ok)
	assert.True(t, ns.IsHost)

	found := find(t, bob)
	require.True(t, found.Success)
	require.Len(t, found.Results, 1)
	assert.Equal(t, "Alice", found.Results[0].OwningUserName)
	assert.Equal(t, "FreeForAll", found.Results[0].MatchType())

	sink, wait := await(t)
	require.NoError(t, bob.JoinSession(online.JoinRequest{
		ID:          online.NewRequestID(),
		SessionName: session.DefaultName,
		Result:      found.Results[0],
	}, sink))
	joined := wait()
	assert.True(t, joined.Success)
	assert.Equal(t, session.JoinSuccess, joined.JoinResult)

	addr, ok := bob.ResolveConnectString(session.DefaultName)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5:7777", addr)

	ad, _ := h.store.Get(found.Results[0].SessionID)
	assert.Equal(t, []string{string(bob.PlayerID())}, ad.Players)
}

func TestHostDoesNotFindOwnSession(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "a:1")
	host(t, alice)

	found := find(t, alice)
	assert.True(t, found.Success)
	assert.Empty(t, found.Results)
}

func TestCreateTwiceFails(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "a:1")
	require.True(t, host(t, alice).Success)

	second := host(t, alice)
	assert.False(t, second.Success)
	assert.ErrorIs(t, second.Err, online.ErrRequestFailed)
}

func TestDestroyWithdrawsSession(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "a:1")
	host(t, alice)

	sink, wait := await(t)
	require.NoError(t, alice.DestroySession(online.DestroyRequest{ID: online.NewRequestID(), SessionName: session.DefaultName}, sink))
	assert.True(t, wait().Success)
	assert.Equal(t, 0, h.store.Count())

	_, ok := alice.NamedSession(session.DefaultName)
	assert.False(t, ok)
}

func TestJoinFullSession(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "a:1")

	settings := session.DefaultSettings()
	settings.NumPublicConnections = 1
	sink, wait := await(t)
	require.NoError(t, alice.CreateSession(online.CreateRequest{ID: online.NewRequestID(), SessionName: session.DefaultName, Settings: settings}, sink))
	require.True(t, wait().Success)

	bob := h.dial(t, "Bob", "")
	carol := h.dial(t, "Carol", "")
	result := find(t, bob).Results[0]

	join := func(c *Client) online.Completion {
		sink, wait := await(t)
		require.NoError(t, c.JoinSession(online.JoinRequest{ID: online.NewRequestID(), SessionName: session.DefaultName, Result: result}, sink))
		return wait()
	}

	assert.Equal(t, session.JoinSuccess, join(bob).JoinResult)
	full := join(carol)
	assert.False(t, full.Success)
	assert.Equal(t, session.JoinSessionIsFull, full.JoinResult)
	_, ok := carol.ResolveConnectString(session.DefaultName)
	assert.False(t, ok)
}

func TestLeaveFreesSlot(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "a:1")
	bob := h.dial(t, "Bob", "")
	host(t, alice)

	result := find(t, bob).Results[0]
	sink, wait := await(t)
	require.NoError(t, bob.JoinSession(online.JoinRequest{ID: online.NewRequestID(), SessionName: session.DefaultName, Result: result}, sink))
	require.True(t, wait().Success)

	sink, wait = await(t)
	require.NoError(t, bob.DestroySession(online.DestroyRequest{ID: online.NewRequestID(), SessionName: session.DefaultName}, sink))
	assert.True(t, wait().Success)

	ad, ok := h.store.Get(result.SessionID)
	require.True(t, ok, "leaving must not withdraw the host's session")
	assert.Empty(t, ad.Players)
	_, ok = bob.ResolveConnectString(session.DefaultName)
	assert.False(t, ok)
}

func TestHostDisconnectWithdrawsSessions(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t, "Alice", "a:1")
	host(t, alice)
	require.Equal(t, 1, h.store.Count())

	require.NoError(t, alice.Close())

	assert.Eventually(t, func() bool { return h.store.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return h.server.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCloseFailsPendingRequests(t *testing.T) {
	h := newHarness(t, Options{})
	bob := h.dial(t, "Bob", "")
	require.NoError(t, bob.Close())

	err := bob.FindSessions(online.FindRequest{ID: online.NewRequestID()}, func(online.Completion) {})
	assert.ErrorIs(t, err, online.ErrClosed)
}

func TestSweepExpiresSilentHosts(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	h := newHarness(t, Options{Clock: clock, SessionTTL: 30 * time.Second})
	alice := h.dial(t, "Alice", "a:1")
	host(t, alice)

	clock.Advance(10 * time.Second)
	assert.Empty(t, h.server.Sweep())

	clock.Advance(25 * time.Second)
	expired := h.server.Sweep()
	assert.Len(t, expired, 1)
	assert.Equal(t, 0, h.store.Count())
}

func TestRecreateAfterExpiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	h := newHarness(t, Options{Clock: clock, SessionTTL: 30 * time.Second})
	alice := h.dial(t, "Alice", "a:1")
	require.True(t, host(t, alice).Success)

	clock.Advance(time.Minute)
	require.Len(t, h.server.Sweep(), 1)

	again := host(t, alice)
	require.True(t, again.Success, "create: %v", again.Err)
	assert.Equal(t, 1, h.store.Count())

	dup := host(t, alice)
	assert.False(t, dup.Success)
	assert.Equal(t, 1, h.store.Count())
}

func TestHeartbeatKeepsSessionAlive(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	h := newHarness(t, Options{Clock: clock, SessionTTL: 30 * time.Second})
	alice := h.dial(t, "Alice", "a:1")
	host(t, alice)

	clock.Advance(20 * time.Second)
	require.NoError(t, alice.write(MsgHeartbeat, "hb", struct{}{}))
	// The find round-trip guarantees the heartbeat before it was handled.
	find(t, alice)

	clock.Advance(20 * time.Second)
	assert.Empty(t, h.server.Sweep())
}

func TestRequestBeforeHello(t *testing.T) {
	h := newHarness(t, Options{})
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	data, err := encode(MsgFind, "r1", FindPayload{Search: session.DefaultSearch()})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, MsgResult, env.Type)
	assert.Equal(t, "r1", env.ID)

	var resp ResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "hello required", resp.Error)
	assert.Equal(t, session.JoinUnknownError, resp.JoinResult)
}

func TestFailedJoinReplyIsNeverSuccess(t *testing.T) {
	sink, wait := await(t)
	c := &Client{
		log:     zap.NewNop(),
		pending: map[string]pendingCall{"r1": {op: online.OpJoin, sessionName: session.DefaultName, done: sink}},
		named:   make(map[string]*session.NamedSession),
		connect: make(map[string]string),
	}

	c.resolve("r1", ResultPayload{Error: "hello required"})

	comp := wait()
	assert.False(t, comp.Success)
	assert.Equal(t, session.JoinUnknownError, comp.JoinResult)
	assert.ErrorIs(t, comp.Err, online.ErrRequestFailed)
	assert.Empty(t, c.connect)
}

func TestAuthToken(t *testing.T) {
	h := newHarness(t, Options{AuthToken: "secret"})

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, h.wsURL, ClientOptions{Token: "secret", PlayerName: "Alice"})
	require.NoError(t, err)
	defer c.Close()
	assert.NotEmpty(t, c.PlayerID())
}

func TestSessionsEndpointAppliesPrivacy(t *testing.T) {
	h := newHarness(t, Options{Privacy: session.PrivacyFilter{MaskHostAddresses: true}})
	alice := h.dial(t, "Alice", "10.0.0.5:7777")
	host(t, alice)

	resp, err := http.Get(h.http.URL + "/api/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []*session.Advertisement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Alice", listed[0].OwnerName)
	assert.Empty(t, listed[0].HostAddress)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin", nil, "", "lobby:8080", true},
		{"same host", nil, "http://lobby:8080", "lobby:8080", true},
		{"localhost", nil, "http://localhost:3000", "lobby:8080", true},
		{"loopback v6", nil, "http://[::1]:3000", "lobby:8080", true},
		{"foreign", nil, "http://evil.example", "lobby:8080", false},
		{"allowlisted", []string{"https://game.example"}, "https://game.example", "lobby:8080", true},
		{"allowlist host match", []string{"https://game.example"}, "http://game.example", "lobby:8080", true},
		{"allowlist miss", []string{"https://game.example"}, "http://localhost:3000", "lobby:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(session.NewStore(), Options{AllowedOrigins: tt.allowed})
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}
