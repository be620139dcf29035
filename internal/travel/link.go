// Package travel moves a game process between maps. A server travel with the
// "listen" option opens a websocket listen server other players can connect
// to; a client travel connects to one.
package travel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const gamePath = "/game"

// Welcome is the first frame a listen server sends to a connecting player.
type Welcome struct {
	Map     string `json:"map"`
	Host    string `json:"host"`
	Players int    `json:"players"`
}

type Options struct {
	ListenHost  string
	ListenPort  int
	PlayerName  string
	DialTimeout time.Duration
	Logger      *zap.Logger
	// OnGuest is called from the listen server's goroutine when a player
	// connects or disconnects.
	OnGuest func(name string, joined bool)
}

type Link struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	mapName  string
	server   *http.Server
	listener net.Listener
	guests   map[*websocket.Conn]string
	remote   *websocket.Conn
	welcome  Welcome
}

func New(opts Options) *Link {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &Link{
		opts:   opts,
		log:    opts.Logger,
		guests: make(map[*websocket.Conn]string),
	}
}

// ParseURL splits a travel URL such as "/Game/Maps/Lobby?listen" into the
// map and its options.
func ParseURL(travelURL string) (string, url.Values, error) {
	mapName, rawOpts, _ := strings.Cut(travelURL, "?")
	if mapName == "" {
		return "", nil, fmt.Errorf("travel: empty map in %q", travelURL)
	}
	opts, err := url.ParseQuery(rawOpts)
	if err != nil {
		return "", nil, fmt.Errorf("travel: options in %q: %w", travelURL, err)
	}
	return mapName, opts, nil
}

// ServerTravel loads travelURL. With the listen option the process becomes a
// listen server; any client connection is dropped first.
func (l *Link) ServerTravel(travelURL string) error {
	mapName, opts, err := ParseURL(travelURL)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.dropRemoteLocked()
	l.mapName = mapName

	if !opts.Has("listen") {
		return l.stopServerLocked()
	}
	if l.server != nil {
		l.log.Info("server travel", zap.String("map", mapName), zap.String("addr", l.listener.Addr().String()))
		return nil
	}

	addr := net.JoinHostPort(l.opts.ListenHost, fmt.Sprint(l.opts.ListenPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("travel: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(gamePath, l.handleGuest)
	l.listener = ln
	l.server = &http.Server{Handler: mux}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Error("listen server", zap.Error(err))
		}
	}(l.server)

	l.log.Info("listen server up", zap.String("map", mapName), zap.String("addr", ln.Addr().String()))
	return nil
}

// ClientTravel connects to the listen server at address (host:port). Hosting
// stops first.
func (l *Link) ClientTravel(address string) error {
	l.mu.Lock()
	l.dropRemoteLocked()
	stopErr := l.stopServerLocked()
	l.mu.Unlock()
	if stopErr != nil {
		l.log.Warn("stop listen server", zap.Error(stopErr))
	}

	u := url.URL{Scheme: "ws", Host: address, Path: gamePath}
	q := u.Query()
	q.Set("name", l.opts.PlayerName)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(context.Background(), l.opts.DialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("travel: connect %s: %w", address, err)
	}

	var w Welcome
	conn.SetReadDeadline(time.Now().Add(l.opts.DialTimeout))
	if err := conn.ReadJSON(&w); err != nil {
		conn.Close()
		return fmt.Errorf("travel: welcome from %s: %w", address, err)
	}
	conn.SetReadDeadline(time.Time{})

	l.mu.Lock()
	l.remote = conn
	l.welcome = w
	l.mapName = w.Map
	l.mu.Unlock()

	go l.drain(conn)
	l.log.Info("client travel", zap.String("address", address), zap.String("map", w.Map))
	return nil
}

func (l *Link) handleGuest(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Warn("guest upgrade", zap.Error(err))
		return
	}
	name := r.URL.Query().Get("name")

	l.mu.Lock()
	l.guests[conn] = name
	welcome := Welcome{Map: l.mapName, Host: l.opts.PlayerName, Players: len(l.guests) + 1}
	l.mu.Unlock()

	if err := conn.WriteJSON(welcome); err != nil {
		l.removeGuest(conn)
		return
	}
	if l.opts.OnGuest != nil {
		l.opts.OnGuest(name, true)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	l.removeGuest(conn)
	if l.opts.OnGuest != nil {
		l.opts.OnGuest(name, false)
	}
}

func (l *Link) removeGuest(conn *websocket.Conn) {
	l.mu.Lock()
	delete(l.guests, conn)
	l.mu.Unlock()
	conn.Close()
}

// drain reads until the host goes away.
func (l *Link) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			l.mu.Lock()
			if l.remote == conn {
				l.remote = nil
			}
			l.mu.Unlock()
			return
		}
	}
}

func (l *Link) dropRemoteLocked() {
	if l.remote != nil {
		l.remote.Close()
		l.remote = nil
		l.welcome = Welcome{}
	}
}

func (l *Link) stopServerLocked() error {
	if l.server == nil {
		return nil
	}
	var err error
	for conn := range l.guests {
		err = multierr.Append(err, conn.Close())
	}
	l.guests = make(map[*websocket.Conn]string)
	err = multierr.Append(err, l.server.Close())
	l.server = nil
	l.listener = nil
	return err
}

// Map is the map the process is on.
func (l *Link) Map() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mapName
}

// Addr is the listen server's address, or "" when not listening.
func (l *Link) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

func (l *Link) Guests() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.guests)
}

// Connected reports whether a client travel is live.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remote != nil
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropRemoteLocked()
	return l.stopServerLocked()
}
