// Package lobby is a websocket matchmaking service: hosts advertise sessions,
// other players search and join them, and the lobby hands out the host's
// connect string. Client implements online.Service on top of it.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/metrics"
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const maxMessageSize = 64 * 1024

type Options struct {
	AuthToken        string
	AllowedOrigins   []string
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	MaxSearchResults int
	Privacy          session.PrivacyFilter
	Clock            clockwork.Clock
	Logger           *zap.Logger
	Metrics          *metrics.LobbyMetrics
}

type Server struct {
	store   *session.Store
	opts    Options
	clock   clockwork.Clock
	log     *zap.Logger
	metrics *metrics.LobbyMetrics

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool

	mu    sync.RWMutex
	peers map[*peer]bool
}

func NewServer(store *session.Store, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = 30 * time.Second
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = 5 * time.Second
	}

	s := &Server{
		store:          store,
		opts:           opts,
		clock:          opts.Clock,
		log:            opts.Logger,
		metrics:        opts.Metrics,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		peers:          make(map[*peer]bool),
	}

	for _, origin := range opts.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/sessions", s.handleSessions)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	p := newPeer(conn)
	s.addPeer(p)
	s.log.Info("lobby client connected", zap.String("remote", r.RemoteAddr))

	go func() {
		defer func() {
			s.dropPeer(p)
			s.log.Info("lobby client disconnected",
				zap.String("remote", r.RemoteAddr),
				zap.String("player", p.playerID))
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				s.log.Debug("bad lobby message", zap.Error(err))
				continue
			}
			resp := s.dispatch(p, env)
			out, err := encode(MsgResult, env.ID, resp)
			if err != nil {
				s.log.Error("encode result", zap.Error(err))
				continue
			}
			if !p.enqueue(out) {
				s.log.Warn("lobby client too slow, disconnecting", zap.String("player", p.playerID))
				return
			}
		}
	}()
}

func (s *Server) dispatch(p *peer, env Envelope) ResultPayload {
	if env.Type != MsgHello && p.playerID == "" {
		s.metrics.Request(string(env.Type), false)
		return ResultPayload{Error: "hello required", JoinResult: session.JoinUnknownError}
	}

	var resp ResultPayload
	switch env.Type {
	case MsgHello:
		resp = s.handleHello(p, env.Payload)
	case MsgCreate:
		resp = s.handleCreate(p, env.Payload)
	case MsgDestroy:
		resp = s.handleDestroy(p, env.Payload)
	case MsgFind:
		resp = s.handleFind(p, env.Payload)
	case MsgJoin:
		resp = s.handleJoin(p, env.Payload)
	case MsgLeave:
		resp = s.handleLeave(p, env.Payload)
	case MsgHeartbeat:
		s.store.Touch(p.playerID, s.clock.Now())
		resp = ResultPayload{OK: true}
	default:
		resp = ResultPayload{Error: fmt.Sprintf("unknown message type %q", env.Type)}
	}

	s.metrics.Request(string(env.Type), resp.OK)
	s.metrics.SetSessions(s.store.Count())
	return resp
}

func (s *Server) handleHello(p *peer, raw json.RawMessage) ResultPayload {
	var req HelloPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return ResultPayload{Error: err.Error()}
	}
	if p.playerID != "" {
		return ResultPayload{Error: "already identified"}
	}
	p.playerID = req.PlayerID
	if p.playerID == "" {
		p.playerID = uuid.NewString()
	}
	p.playerName = req.PlayerName
	p.address = req.Address
	return ResultPayload{OK: true, PlayerID: p.playerID}
}

func (s *Server) handleCreate(p *peer, raw json.RawMessage) ResultPayload {
	var req CreatePayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return ResultPayload{Error: err.Error()}
	}
	if err := req.Settings.Validate(); err != nil {
		return ResultPayload{Error: err.Error()}
	}
	if _, ok := s.store.FindOwned(p.playerID, req.SessionName); ok {
		return ResultPayload{Error: "session already exists"}
	}
	// The sweeper may have expired an earlier session under this name.
	delete(p.hosted, req.SessionName)
	if _, ok := p.joined[req.SessionName]; ok {
		return ResultPayload{Error: "session already exists"}
	}

	now := s.clock.Now()
	ad := &session.Advertisement{
		ID:              uuid.NewString(),
		Name:            req.SessionName,
		OwnerID:         p.playerID,
		OwnerName:       p.playerName,
		HostAddress:     p.address,
		Settings:        req.Settings.Clone(),
		State:           session.Pending,
		CreatedAt:       now,
		LastHeartbeatAt: now,
	}
	s.store.Update(ad)
	p.hosted[req.SessionName] = ad.ID

	s.log.Info("session advertised",
		zap.String("session", ad.ID),
		zap.String("owner", p.playerName),
		zap.String("address", ad.HostAddress))

	return ResultPayload{OK: true, Session: &session.NamedSession{
		Name:        ad.Name,
		SessionID:   ad.ID,
		OwnerID:     ad.OwnerID,
		IsHost:      true,
		Settings:    ad.Settings.Clone(),
		State:       ad.State,
		HostAddress: ad.HostAddress,
	}}
}

func (s *Server) handleDestroy(p *peer, raw json.RawMessage) ResultPayload {
	var req DestroyPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return ResultPayload{Error: err.Error()}
	}
	if id, ok := p.hosted[req.SessionName]; ok {
		s.store.Remove(id)
		delete(p.hosted, req.SessionName)
		s.log.Info("session destroyed", zap.String("session", id))
		return ResultPayload{OK: true}
	}
	if _, ok := p.joined[req.SessionName]; ok {
		return s.leave(p, req.SessionName)
	}
	return ResultPayload{Error: "no such session"}
}

func (s *Server) handleLeave(p *peer, raw json.RawMessage) ResultPayload {
	var req LeavePayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return ResultPayload{Error: err.Error()}
	}
	if _, ok := p.joined[req.SessionName]; !ok {
		return ResultPayload{Error: "not in session"}
	}
	return s.leave(p, req.SessionName)
}

func (s *Server) leave(p *peer, name string) ResultPayload {
	id := p.joined[name]
	s.store.Release(id, p.playerID)
	delete(p.joined, name)
	return ResultPayload{OK: true}
}

func (s *Server) handleFind(p *peer, raw json.RawMessage) ResultPayload {
	var req FindPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return ResultPayload{Error: err.Error()}
	}
	q := req.Search
	if s.opts.MaxSearchResults > 0 && (q.MaxResults <= 0 || q.MaxResults > s.opts.MaxSearchResults) {
		q.MaxResults = s.opts.MaxSearchResults
	}

	found := s.store.Search(q, p.playerID)
	results := make([]session.SearchResult, 0, len(found))
	for _, ad := range found {
		results = append(results, ad.Result(0))
	}
	return ResultPayload{OK: true, Results: results}
}

func (s *Server) handleJoin(p *peer, raw json.RawMessage) ResultPayload {
	var req JoinPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return ResultPayload{Error: err.Error(), JoinResult: session.JoinUnknownError}
	}
	_, hosting := p.hosted[req.SessionName]
	_, joined := p.joined[req.SessionName]
	if hosting || joined {
		s.metrics.JoinFailed(session.JoinAlreadyInSession.String())
		return ResultPayload{JoinResult: session.JoinAlreadyInSession}
	}

	ad, result := s.store.Reserve(req.Handle, p.playerID)
	if result != session.JoinSuccess {
		s.metrics.JoinFailed(result.String())
		return ResultPayload{JoinResult: result}
	}
	p.joined[req.SessionName] = ad.ID

	return ResultPayload{
		OK:            true,
		JoinResult:    session.JoinSuccess,
		ConnectString: ad.HostAddress,
		Session: &session.NamedSession{
			Name:        req.SessionName,
			SessionID:   ad.ID,
			OwnerID:     ad.OwnerID,
			Settings:    ad.Settings.Clone(),
			State:       ad.State,
			HostAddress: ad.HostAddress,
		},
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessions := s.store.GetAll()
	if !s.opts.Privacy.IsNoop() {
		sessions = s.opts.Privacy.FilterSlice(sessions)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

func (s *Server) addPeer(p *peer) {
	s.mu.Lock()
	s.peers[p] = true
	n := len(s.peers)
	s.mu.Unlock()
	s.metrics.SetClients(n)
}

// dropPeer forgets a disconnected client: sessions it hosts disappear and
// slots it holds are freed.
func (s *Server) dropPeer(p *peer) {
	s.mu.Lock()
	delete(s.peers, p)
	n := len(s.peers)
	s.mu.Unlock()
	p.close()

	if p.playerID != "" {
		for _, id := range s.store.RemoveOwner(p.playerID) {
			s.log.Info("session withdrawn", zap.String("session", id), zap.String("owner", p.playerID))
		}
		for _, id := range p.joined {
			s.store.Release(id, p.playerID)
		}
	}
	s.metrics.SetClients(n)
	s.metrics.SetSessions(s.store.Count())
}

func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Sweep drops sessions whose host has not sent a heartbeat within the TTL.
func (s *Server) Sweep() []string {
	expired := s.store.Expire(s.clock.Now().Add(-s.opts.SessionTTL))
	if len(expired) > 0 {
		s.log.Info("sessions expired", zap.Strings("sessions", expired))
	}
	s.metrics.SessionsExpired(len(expired))
	s.metrics.SetSessions(s.store.Count())
	return expired
}

// RunSweeper calls Sweep every SweepInterval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context) {
	ticker := s.clock.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() error {
	s.mu.RLock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	var err error
	for _, p := range peers {
		if cerr := p.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}

func (s *Server) authorize(r *http.Request) bool {
	if s.opts.AuthToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.opts.AuthToken {
		return true
	}

	if r.Header.Get("X-Lobby-Token") == s.opts.AuthToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.opts.AuthToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func ListenAndServe(ctx context.Context, host string, port int, handler http.Handler, log *zap.Logger) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("lobby listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
