package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/online"
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout     = 10 * time.Second
	helloTimeout     = 10 * time.Second
	defaultHeartbeat = 10 * time.Second
	serviceName      = "LOBBY"
)

type ClientOptions struct {
	Token      string
	PlayerID   online.PlayerID
	PlayerName string
	// Address is advertised as the connect string of sessions this client hosts.
	Address   string
	Heartbeat time.Duration
	Logger    *zap.Logger
}

type pendingCall struct {
	op          online.Op
	sessionName string
	done        online.Sink
}

// Client is an online.Service backed by a lobby server connection.
type Client struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	log       *zap.Logger
	heartbeat time.Duration
	player    online.PlayerID

	mu      sync.Mutex
	pending map[string]pendingCall
	named   map[string]*session.NamedSession
	connect map[string]string
	closed  bool

	hello  chan ResultPayload
	cancel context.CancelFunc
	done   chan struct{}
}

var _ online.Service = (*Client)(nil)

// Dial connects to the lobby at url (ws://host:port/ws), identifies the
// player and starts the read and heartbeat loops.
func Dial(ctx context.Context, url string, opts ClientOptions) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Heartbeat == 0 {
		opts.Heartbeat = defaultHeartbeat
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial lobby %s: %w", url, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:      conn,
		log:       opts.Logger,
		heartbeat: opts.Heartbeat,
		pending:   make(map[string]pendingCall),
		named:     make(map[string]*session.NamedSession),
		connect:   make(map[string]string),
		hello:     make(chan ResultPayload, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go c.readLoop()

	if err := c.write(MsgHello, string(MsgHello), HelloPayload{
		PlayerID:   string(opts.PlayerID),
		PlayerName: opts.PlayerName,
		Address:    opts.Address,
	}); err != nil {
		c.Close()
		return nil, fmt.Errorf("lobby hello: %w", err)
	}

	select {
	case resp, ok := <-c.hello:
		if !ok {
			c.Close()
			return nil, fmt.Errorf("lobby hello: %w", online.ErrClosed)
		}
		if !resp.OK {
			c.Close()
			return nil, fmt.Errorf("lobby hello: %s", resp.Error)
		}
		c.player = online.PlayerID(resp.PlayerID)
	case <-time.After(helloTimeout):
		c.Close()
		return nil, errors.New("lobby hello: timed out")
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}

	go c.heartbeatLoop(loopCtx)
	return c, nil
}

func (c *Client) Name() string {
	return serviceName
}

// PlayerID is the id the lobby knows this client by.
func (c *Client) PlayerID() online.PlayerID {
	return c.player
}

func (c *Client) NamedSession(name string) (*session.NamedSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns, ok := c.named[name]
	if !ok {
		return nil, false
	}
	cp := *ns
	cp.Settings = ns.Settings.Clone()
	return &cp, true
}

func (c *Client) ResolveConnectString(sessionName string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.connect[sessionName]
	return addr, ok
}

func (c *Client) CreateSession(req online.CreateRequest, done online.Sink) error {
	if err := req.Settings.Validate(); err != nil {
		return err
	}
	return c.request(MsgCreate, req.ID, online.OpCreate, req.SessionName, CreatePayload{
		SessionName: req.SessionName,
		Settings:    req.Settings,
	}, done)
}

// DestroySession withdraws a hosted session, or leaves a joined one.
func (c *Client) DestroySession(req online.DestroyRequest, done online.Sink) error {
	c.mu.Lock()
	ns, ok := c.named[req.SessionName]
	joined := ok && !ns.IsHost
	c.mu.Unlock()
	if joined {
		return c.request(MsgLeave, req.ID, online.OpDestroy, req.SessionName, LeavePayload{
			SessionName: req.SessionName,
		}, done)
	}
	return c.request(MsgDestroy, req.ID, online.OpDestroy, req.SessionName, DestroyPayload{
		SessionName: req.SessionName,
	}, done)
}

func (c *Client) FindSessions(req online.FindRequest, done online.Sink) error {
	return c.request(MsgFind, req.ID, online.OpFind, "", FindPayload{Search: req.Search}, done)
}

func (c *Client) JoinSession(req online.JoinRequest, done online.Sink) error {
	return c.request(MsgJoin, req.ID, online.OpJoin, req.SessionName, JoinPayload{
		SessionName: req.SessionName,
		Handle:      req.Result.Handle,
	}, done)
}

func (c *Client) request(typ MessageType, id online.RequestID, op online.Op, sessionName string, payload interface{}, done online.Sink) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return online.ErrClosed
	}
	c.pending[string(id)] = pendingCall{op: op, sessionName: sessionName, done: done}
	c.mu.Unlock()

	if err := c.write(typ, string(id), payload); err != nil {
		c.mu.Lock()
		delete(c.pending, string(id))
		c.mu.Unlock()
		return fmt.Errorf("%s request: %w", op, err)
	}
	return nil
}

func (c *Client) write(typ MessageType, id string, payload interface{}) error {
	data, err := encode(typ, id, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.failPending()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("lobby read", zap.Error(err))
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Debug("bad lobby message", zap.Error(err))
			continue
		}
		if env.Type != MsgResult {
			continue
		}

		var resp ResultPayload
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			c.log.Debug("bad lobby result", zap.Error(err))
			continue
		}

		if env.ID == string(MsgHello) {
			select {
			case c.hello <- resp:
			default:
			}
			continue
		}
		c.resolve(env.ID, resp)
	}
}

func (c *Client) resolve(id string, resp ResultPayload) {
	c.mu.Lock()
	call, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		if id != "" {
			c.log.Debug("result for unknown request", zap.String("request", id))
		}
		return
	}
	delete(c.pending, id)

	comp := online.Completion{
		RequestID:   online.RequestID(id),
		Op:          call.op,
		SessionName: call.sessionName,
		Success:     resp.OK,
		JoinResult:  resp.JoinResult,
		Results:     resp.Results,
	}
	if !resp.OK {
		comp.Err = fmt.Errorf("%w: %s", online.ErrRequestFailed, resp.Error)
		// A failed reply without a join result must not read as JoinSuccess.
		if call.op != online.OpJoin || resp.JoinResult == session.JoinSuccess {
			comp.JoinResult = session.JoinUnknownError
		}
	}

	switch call.op {
	case online.OpCreate, online.OpJoin:
		if resp.OK && resp.Session != nil {
			c.named[call.sessionName] = resp.Session
			if call.op == online.OpJoin && resp.ConnectString != "" {
				c.connect[call.sessionName] = resp.ConnectString
			}
		}
	case online.OpDestroy:
		if resp.OK {
			delete(c.named, call.sessionName)
			delete(c.connect, call.sessionName)
		}
	}
	c.mu.Unlock()

	call.done(comp)
}

// failPending completes every outstanding request once the connection is gone.
func (c *Client) failPending() {
	c.mu.Lock()
	c.closed = true
	calls := c.pending
	c.pending = make(map[string]pendingCall)
	c.mu.Unlock()

	close(c.hello)
	for id, call := range calls {
		call.done(online.Completion{
			RequestID:   online.RequestID(id),
			Op:          call.op,
			SessionName: call.sessionName,
			JoinResult:  session.JoinUnknownError,
			Err:         online.ErrClosed,
		})
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if !c.hosting() {
				continue
			}
			if err := c.write(MsgHeartbeat, "", struct{}{}); err != nil {
				c.log.Warn("lobby heartbeat", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) hosting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ns := range c.named {
		if ns.IsHost {
			return true
		}
	}
	return false
}

// Close drops the connection. Outstanding requests complete with ErrClosed.
func (c *Client) Close() error {
	c.cancel()
	err := c.conn.Close()
	<-c.done
	return err
}
