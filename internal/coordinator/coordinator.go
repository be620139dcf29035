// Package coordinator drives the session lifecycle of one game client:
// host a game, find one, join it, leave it. Every method and every completion
// handler runs on the game thread; the session service hands completions back
// through the frame queue.
package coordinator

import (
	"fmt"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/metrics"
	"github.com/AlbertWijaya1/MultiPlayer/internal/online"
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"go.uber.org/zap"
)

// State is where the coordinator is in the session lifecycle.
type State int

const (
	Idle State = iota
	Creating
	Hosting
	Searching
	Joining
	Connected
)

var stateNames = map[State]string{
	Idle:      "idle",
	Creating:  "creating",
	Hosting:   "hosting",
	Searching: "searching",
	Joining:   "joining",
	Connected: "connected",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Pending reports whether a request is outstanding.
func (s State) Pending() bool {
	return s == Creating || s == Searching || s == Joining
}

const DefaultLobbyMap = "/Game/ThirdPerson/Maps/Lobby?listen"

type Options struct {
	SessionName     string
	LobbyMap        string
	Search          session.Search
	MessageDuration time.Duration
	Logger          *zap.Logger
	Metrics         *metrics.CoordinatorMetrics
}

func (o Options) withDefaults() Options {
	if o.SessionName == "" {
		o.SessionName = session.DefaultName
	}
	if o.LobbyMap == "" {
		o.LobbyMap = DefaultLobbyMap
	}
	if o.Search.MaxResults == 0 {
		o.Search = session.DefaultSearch()
	}
	if o.MessageDuration == 0 {
		o.MessageDuration = 15 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type handler func(online.Completion)

type Coordinator struct {
	svc  online.Service
	host Host
	post Poster
	opts Options
	log  *zap.Logger

	state     State
	pending   map[online.RequestID]handler
	results   []session.SearchResult
	matchType string
}

// New builds a coordinator. svc may be nil, in which case every request is a
// silent no-op.
func New(svc online.Service, host Host, post Poster, opts Options) *Coordinator {
	opts = opts.withDefaults()
	c := &Coordinator{
		svc:     svc,
		host:    host,
		post:    post,
		opts:    opts,
		log:     opts.Logger,
		pending: make(map[online.RequestID]handler),
	}
	if svc != nil {
		c.notify(Blue, fmt.Sprintf("Found Subsystem %s", svc.Name()))
	} else {
		c.log.Warn("online features disabled", zap.Error(online.ErrServiceUnavailable))
	}
	return c
}

func (c *Coordinator) State() State {
	return c.state
}

// Results returns the sessions found by the last search.
func (c *Coordinator) Results() []session.SearchResult {
	out := make([]session.SearchResult, len(c.results))
	copy(out, c.results)
	return out
}

// PendingRequests is the number of requests awaiting completion, including
// fire-and-forget destroys.
func (c *Coordinator) PendingRequests() int {
	return len(c.pending)
}

// CreateSession hosts a new game. An existing session of the same name is
// destroyed first without waiting for that to finish.
func (c *Coordinator) CreateSession(settings session.Settings) {
	if c.svc == nil {
		return
	}
	player, name, ok := c.ready(online.OpCreate, false)
	if !ok {
		return
	}

	if _, exists := c.svc.NamedSession(c.opts.SessionName); exists {
		c.log.Info("destroying existing session before create", zap.String("session", c.opts.SessionName))
		c.destroy(player, c.onStaleDestroyComplete)
	}

	id := online.NewRequestID()
	c.pending[id] = c.onCreateComplete
	c.state = Creating
	c.opts.Metrics.Request(online.OpCreate.String(), metrics.OutcomeIssued)

	err := c.svc.CreateSession(online.CreateRequest{
		ID:          id,
		Player:      player,
		PlayerName:  name,
		SessionName: c.opts.SessionName,
		Settings:    settings,
	}, c.sink)
	if err != nil {
		delete(c.pending, id)
		c.failed(online.OpCreate, err, "Failed to create session!")
	}
}

// FindSessions searches for games and joins the first whose MatchType
// attribute equals matchType.
func (c *Coordinator) FindSessions(matchType string) {
	if c.svc == nil {
		return
	}
	player, _, ok := c.ready(online.OpFind, true)
	if !ok {
		return
	}

	c.results = nil
	c.matchType = matchType

	id := online.NewRequestID()
	c.pending[id] = c.onFindComplete
	c.state = Searching
	c.opts.Metrics.Request(online.OpFind.String(), metrics.OutcomeIssued)

	err := c.svc.FindSessions(online.FindRequest{
		ID:     id,
		Player: player,
		Search: c.opts.Search,
	}, c.sink)
	if err != nil {
		delete(c.pending, id)
		c.failed(online.OpFind, err, "Failed to find sessions!")
	}
}

// JoinSession joins a session found by a search and travels to its host.
func (c *Coordinator) JoinSession(result session.SearchResult) {
	if c.svc == nil {
		return
	}
	player, _, ok := c.ready(online.OpJoin, true)
	if !ok {
		return
	}

	id := online.NewRequestID()
	c.pending[id] = c.onJoinComplete
	c.state = Joining
	c.opts.Metrics.Request(online.OpJoin.String(), metrics.OutcomeIssued)

	err := c.svc.JoinSession(online.JoinRequest{
		ID:          id,
		Player:      player,
		SessionName: c.opts.SessionName,
		Result:      result,
	}, c.sink)
	if err != nil {
		delete(c.pending, id)
		c.failed(online.OpJoin, err, "Failed to join session!")
	}
}

// DestroySession leaves the current session, hosted or joined.
func (c *Coordinator) DestroySession() {
	if c.svc == nil {
		return
	}
	player, _, ok := c.ready(online.OpDestroy, false)
	if !ok {
		return
	}
	if _, exists := c.svc.NamedSession(c.opts.SessionName); !exists {
		c.log.Debug("nothing to destroy", zap.String("session", c.opts.SessionName))
		return
	}
	c.destroy(player, c.onDestroyComplete)
}

func (c *Coordinator) destroy(player online.PlayerID, h handler) {
	id := online.NewRequestID()
	c.pending[id] = h
	c.opts.Metrics.Request(online.OpDestroy.String(), metrics.OutcomeIssued)

	err := c.svc.DestroySession(online.DestroyRequest{
		ID:          id,
		Player:      player,
		SessionName: c.opts.SessionName,
	}, c.sink)
	if err != nil {
		delete(c.pending, id)
		c.opts.Metrics.Request(online.OpDestroy.String(), metrics.OutcomeFailed)
		c.log.Warn("destroy session", zap.String("session", c.opts.SessionName), zap.Error(err))
	}
}

// ready checks that a new request may start and finds the local player.
// Searching and joining start only from Idle.
func (c *Coordinator) ready(op online.Op, idleOnly bool) (online.PlayerID, string, bool) {
	if c.state.Pending() || (idleOnly && c.state != Idle) {
		c.opts.Metrics.Request(op.String(), metrics.OutcomeRejected)
		c.log.Info("request while busy", zap.Stringer("op", op), zap.Stringer("state", c.state))
		c.notify(Red, fmt.Sprintf("Cannot %s session while %s", op, c.state))
		return "", "", false
	}
	player, name, ok := c.host.LocalPlayer()
	if !ok {
		c.log.Warn("no local player", zap.Stringer("op", op))
		return "", "", false
	}
	return player, name, true
}

// sink is handed to the service. It may be called from any goroutine.
func (c *Coordinator) sink(comp online.Completion) {
	c.post.Post(func() { c.complete(comp) })
}

func (c *Coordinator) complete(comp online.Completion) {
	h, ok := c.pending[comp.RequestID]
	if !ok {
		c.log.Debug("completion for unknown request",
			zap.String("request", string(comp.RequestID)),
			zap.Stringer("op", comp.Op))
		return
	}
	delete(c.pending, comp.RequestID)
	h(comp)
}

func (c *Coordinator) onCreateComplete(comp online.Completion) {
	if !comp.Success {
		c.failed(online.OpCreate, comp.Err, "Failed to create session!")
		return
	}

	c.state = Hosting
	c.opts.Metrics.Request(online.OpCreate.String(), metrics.OutcomeSucceeded)
	c.log.Info("session created", zap.String("session", comp.SessionName))
	c.notify(Blue, fmt.Sprintf("Success to create session: %s!", comp.SessionName))

	err := c.host.ServerTravel(c.opts.LobbyMap)
	c.opts.Metrics.Travel("server", err)
	if err != nil {
		c.log.Error("server travel", zap.String("url", c.opts.LobbyMap), zap.Error(err))
		c.notify(Red, fmt.Sprintf("Failed to load %s", c.opts.LobbyMap))
	}
}

func (c *Coordinator) onFindComplete(comp online.Completion) {
	if !comp.Success {
		c.failed(online.OpFind, comp.Err, "Failed to find sessions!")
		return
	}

	c.state = Idle
	c.results = comp.Results
	c.opts.Metrics.Request(online.OpFind.String(), metrics.OutcomeSucceeded)
	c.log.Info("sessions found", zap.Int("count", len(comp.Results)), zap.String("match_type", c.matchType))

	var match *session.SearchResult
	for i := range c.results {
		r := c.results[i]
		c.notify(Cyan, fmt.Sprintf("Id: %s, User: %s", r.SessionID, r.OwningUserName))
		if match == nil && r.MatchType() == c.matchType {
			match = &c.results[i]
		}
	}

	if match == nil {
		c.notify(Cyan, fmt.Sprintf("No %s sessions found", c.matchType))
		return
	}
	c.notify(Cyan, fmt.Sprintf("Joining Match Type: %s", c.matchType))
	c.JoinSession(*match)
}

func (c *Coordinator) onJoinComplete(comp online.Completion) {
	if comp.JoinResult != session.JoinSuccess {
		c.failed(online.OpJoin, comp.Err, fmt.Sprintf("Failed to join session: %s", comp.JoinResult))
		return
	}

	addr, ok := c.svc.ResolveConnectString(c.opts.SessionName)
	if !ok {
		c.state = Idle
		c.opts.Metrics.Request(online.OpJoin.String(), metrics.OutcomeUnresolved)
		c.log.Warn("joined but no connect string", zap.String("session", c.opts.SessionName), zap.Error(online.ErrResolveFailed))
		return
	}

	c.opts.Metrics.Request(online.OpJoin.String(), metrics.OutcomeSucceeded)
	c.notify(Yellow, fmt.Sprintf("Connect String on Address: %s", addr))

	err := c.host.ClientTravel(addr, TravelAbsolute)
	c.opts.Metrics.Travel("client", err)
	if err != nil {
		c.state = Idle
		c.log.Error("client travel", zap.String("address", addr), zap.Error(err))
		c.notify(Red, fmt.Sprintf("Failed to travel to %s", addr))
		return
	}
	c.state = Connected
}

// TravelFailed reports a client travel that failed after the host accepted
// it. The player is back in the menu, so the coordinator returns to Idle.
func (c *Coordinator) TravelFailed(address string, err error) {
	if c.state != Connected {
		return
	}
	c.opts.Metrics.Travel("client", err)
	c.state = Idle
	c.log.Error("client travel", zap.String("address", address), zap.Error(err))
	c.notify(Red, fmt.Sprintf("Failed to travel to %s", address))
}

func (c *Coordinator) onDestroyComplete(comp online.Completion) {
	if !comp.Success {
		c.opts.Metrics.Request(online.OpDestroy.String(), metrics.OutcomeFailed)
		c.log.Warn("destroy session failed", zap.String("session", comp.SessionName), zap.Error(comp.Err))
		c.notify(Red, "Failed to leave session!")
		return
	}
	c.state = Idle
	c.results = nil
	c.opts.Metrics.Request(online.OpDestroy.String(), metrics.OutcomeSucceeded)
	c.notify(Blue, fmt.Sprintf("Left session %s", comp.SessionName))
}

// onStaleDestroyComplete handles the destroy issued ahead of a create. The
// create has already been sent, so the result is only logged.
func (c *Coordinator) onStaleDestroyComplete(comp online.Completion) {
	outcome := metrics.OutcomeSucceeded
	if !comp.Success {
		outcome = metrics.OutcomeFailed
	}
	c.opts.Metrics.Request(online.OpDestroy.String(), outcome)
	c.log.Debug("previous session destroyed",
		zap.String("session", comp.SessionName),
		zap.Bool("success", comp.Success),
		zap.Error(comp.Err))
}

func (c *Coordinator) failed(op online.Op, err error, text string) {
	c.state = Idle
	c.opts.Metrics.Request(op.String(), metrics.OutcomeFailed)
	c.log.Warn("session request failed", zap.Stringer("op", op), zap.Error(err))
	c.notify(Red, text)
}

func (c *Coordinator) notify(color Color, text string) {
	c.host.Notify(Message{Color: color, Duration: c.opts.MessageDuration, Text: text})
}
