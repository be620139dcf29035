package online

import (
	"fmt"
	"sync"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Platform is an in-process session backend shared by any number of Memory
// services, one per player. It plays the part of the hosted platform in
// tests and in single-machine demos.
type Platform struct {
	name    string
	store   *session.Store
	clock   clockwork.Clock
	latency time.Duration
	log     *zap.Logger
}

type PlatformOption func(*Platform)

func WithClock(c clockwork.Clock) PlatformOption {
	return func(p *Platform) { p.clock = c }
}

// WithLatency delays every completion by d on the platform clock. Session
// state changes apply when the completion fires, not when it is requested.
func WithLatency(d time.Duration) PlatformOption {
	return func(p *Platform) { p.latency = d }
}

func WithLogger(l *zap.Logger) PlatformOption {
	return func(p *Platform) { p.log = l }
}

func WithName(name string) PlatformOption {
	return func(p *Platform) { p.name = name }
}

func NewPlatform(opts ...PlatformOption) *Platform {
	p := &Platform{
		name:  "NULL",
		store: session.NewStore(),
		clock: clockwork.NewRealClock(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Platform) Store() *session.Store {
	return p.store
}

// Service returns the session service for one player. address is where that
// player's listen server can be reached if it hosts.
func (p *Platform) Service(player PlayerID, displayName, address string) *Memory {
	return &Memory{
		platform:    p,
		player:      player,
		displayName: displayName,
		address:     address,
		named:       make(map[string]*session.NamedSession),
		connect:     make(map[string]string),
	}
}

func (p *Platform) complete(fn func() Completion, done Sink) {
	if p.latency <= 0 {
		done(fn())
		return
	}
	p.clock.AfterFunc(p.latency, func() { done(fn()) })
}

// Memory is one player's view of a Platform.
type Memory struct {
	platform    *Platform
	player      PlayerID
	displayName string
	address     string

	mu        sync.Mutex
	named     map[string]*session.NamedSession
	connect   map[string]string
	searching bool
}

var _ Service = (*Memory)(nil)

func (m *Memory) Name() string {
	return m.platform.name
}

func (m *Memory) NamedSession(name string) (*session.NamedSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.named[name]
	if !ok {
		return nil, false
	}
	c := *ns
	c.Settings = ns.Settings.Clone()
	return &c, true
}

func (m *Memory) CreateSession(req CreateRequest, done Sink) error {
	if err := req.Settings.Validate(); err != nil {
		return err
	}
	m.platform.complete(func() Completion {
		c := Completion{RequestID: req.ID, Op: OpCreate, SessionName: req.SessionName}

		m.mu.Lock()
		defer m.mu.Unlock()
		if _, exists := m.named[req.SessionName]; exists {
			c.Err = fmt.Errorf("%w: %s", ErrSessionExists, req.SessionName)
			return c
		}

		now := m.platform.clock.Now()
		ad := &session.Advertisement{
			ID:              uuid.NewString(),
			Name:            req.SessionName,
			OwnerID:         string(m.player),
			OwnerName:       m.ownerName(req.PlayerName),
			HostAddress:     m.address,
			Settings:        req.Settings.Clone(),
			State:           session.Pending,
			CreatedAt:       now,
			LastHeartbeatAt: now,
		}
		m.platform.store.Update(ad)
		m.named[req.SessionName] = &session.NamedSession{
			Name:        req.SessionName,
			SessionID:   ad.ID,
			OwnerID:     ad.OwnerID,
			IsHost:      true,
			Settings:    ad.Settings.Clone(),
			State:       ad.State,
			HostAddress: m.address,
		}
		m.platform.log.Debug("session created",
			zap.String("session", req.SessionName),
			zap.String("id", ad.ID),
			zap.String("owner", ad.OwnerID))
		c.Success = true
		return c
	}, done)
	return nil
}

func (m *Memory) DestroySession(req DestroyRequest, done Sink) error {
	m.platform.complete(func() Completion {
		c := Completion{RequestID: req.ID, Op: OpDestroy, SessionName: req.SessionName}

		m.mu.Lock()
		defer m.mu.Unlock()
		ns, ok := m.named[req.SessionName]
		if !ok {
			c.Err = fmt.Errorf("%w: %s", ErrNoSession, req.SessionName)
			return c
		}
		if ns.IsHost {
			m.platform.store.Remove(ns.SessionID)
		} else {
			m.platform.store.Release(ns.SessionID, string(m.player))
		}
		delete(m.named, req.SessionName)
		delete(m.connect, req.SessionName)
		c.Success = true
		return c
	}, done)
	return nil
}

func (m *Memory) FindSessions(req FindRequest, done Sink) error {
	m.mu.Lock()
	if m.searching {
		m.mu.Unlock()
		return ErrSearchInProgress
	}
	m.searching = true
	m.mu.Unlock()

	m.platform.complete(func() Completion {
		found := m.platform.store.Search(req.Search, string(m.player))
		results := make([]session.SearchResult, 0, len(found))
		for _, ad := range found {
			results = append(results, ad.Result(0))
		}

		m.mu.Lock()
		m.searching = false
		m.mu.Unlock()

		return Completion{RequestID: req.ID, Op: OpFind, Success: true, Results: results}
	}, done)
	return nil
}

func (m *Memory) JoinSession(req JoinRequest, done Sink) error {
	m.platform.complete(func() Completion {
		c := Completion{RequestID: req.ID, Op: OpJoin, SessionName: req.SessionName}

		m.mu.Lock()
		defer m.mu.Unlock()
		if _, exists := m.named[req.SessionName]; exists {
			c.JoinResult = session.JoinAlreadyInSession
			return c
		}

		ad, result := m.platform.store.Reserve(req.Result.Handle, string(m.player))
		c.JoinResult = result
		if result != session.JoinSuccess {
			return c
		}

		m.named[req.SessionName] = &session.NamedSession{
			Name:        req.SessionName,
			SessionID:   ad.ID,
			OwnerID:     ad.OwnerID,
			Settings:    ad.Settings.Clone(),
			State:       ad.State,
			HostAddress: ad.HostAddress,
		}
		if ad.HostAddress != "" {
			m.connect[req.SessionName] = ad.HostAddress
		}
		c.Success = true
		return c
	}, done)
	return nil
}

func (m *Memory) ResolveConnectString(sessionName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr, ok := m.connect[sessionName]
	return addr, ok
}

func (m *Memory) ownerName(requested string) string {
	if requested != "" {
		return requested
	}
	if m.displayName != "" {
		return m.displayName
	}
	return string(m.player)
}
