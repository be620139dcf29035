package app

import (
	"errors"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/coordinator"
	"github.com/AlbertWijaya1/MultiPlayer/internal/online"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const maxMessages = 12

var ErrRelativeTravel = errors.New("relative client travel is not supported")

// Traveler moves the game between maps. *travel.Link implements it.
type Traveler interface {
	ServerTravel(url string) error
	ClientTravel(address string) error
	Map() string
	Addr() string
	Guests() int
	Connected() bool
}

// Line is an on-screen message with its expiry.
type Line struct {
	coordinator.Message
	Expires time.Time
}

// Game is the coordinator's host inside the menu client. Everything on it
// runs on the frame thread, so it is not locked. Client travel dials on its
// own goroutine and posts failures back.
type Game struct {
	player online.PlayerID
	name   string
	travel Traveler
	post   coordinator.Poster
	clock  clockwork.Clock
	log    *zap.Logger

	travelFailed func(address string, err error)

	lines []Line
}

type GameOptions struct {
	Player     online.PlayerID
	PlayerName string
	Travel     Traveler
	Clock      clockwork.Clock
	Logger     *zap.Logger

	// Poster runs travel results on the frame thread. Without one,
	// ClientTravel dials inline.
	Poster coordinator.Poster
}

func NewGame(opts GameOptions) *Game {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Game{
		player: opts.Player,
		name:   opts.PlayerName,
		travel: opts.Travel,
		post:   opts.Poster,
		clock:  opts.Clock,
		log:    opts.Logger,
	}
}

var _ coordinator.Host = (*Game)(nil)

func (g *Game) LocalPlayer() (online.PlayerID, string, bool) {
	if g.player == "" {
		return "", "", false
	}
	return g.player, g.name, true
}

func (g *Game) Notify(msg coordinator.Message) {
	g.log.Info("message", zap.String("color", msg.Color.String()), zap.String("text", msg.Text))
	g.lines = append(g.lines, Line{Message: msg, Expires: g.clock.Now().Add(msg.Duration)})
	if len(g.lines) > maxMessages {
		g.lines = g.lines[len(g.lines)-maxMessages:]
	}
}

func (g *Game) ServerTravel(url string) error {
	if g.travel == nil {
		return errors.New("no travel link")
	}
	return g.travel.ServerTravel(url)
}

func (g *Game) ClientTravel(address string, kind coordinator.TravelType) error {
	if kind != coordinator.TravelAbsolute {
		return ErrRelativeTravel
	}
	if g.travel == nil {
		return errors.New("no travel link")
	}
	if g.post == nil {
		return g.travel.ClientTravel(address)
	}
	go func() {
		err := g.travel.ClientTravel(address)
		if err == nil {
			return
		}
		g.post.Post(func() {
			if g.travelFailed != nil {
				g.travelFailed(address, err)
			}
		})
	}()
	return nil
}

// OnTravelFailed sets the frame-thread callback for a client travel that
// failed after ClientTravel returned.
func (g *Game) OnTravelFailed(fn func(address string, err error)) {
	g.travelFailed = fn
}

// Lines returns live messages, newest first, dropping the expired ones.
func (g *Game) Lines() []Line {
	now := g.clock.Now()
	live := g.lines[:0]
	for _, l := range g.lines {
		if now.Before(l.Expires) {
			live = append(live, l)
		}
	}
	g.lines = live

	out := make([]Line, 0, len(live))
	for i := len(live) - 1; i >= 0; i-- {
		out = append(out, live[i])
	}
	return out
}

// Map is the map the game is on, or "" before the first travel.
func (g *Game) Map() string {
	if g.travel == nil {
		return ""
	}
	return g.travel.Map()
}

// Guests is the number of players connected to this game's listen server.
func (g *Game) Guests() int {
	if g.travel == nil {
		return 0
	}
	return g.travel.Guests()
}

// LinkUp reports whether the connection to a remote host is live.
func (g *Game) LinkUp() bool {
	return g.travel != nil && g.travel.Connected()
}

// ListenAddr is the listen server's address while hosting.
func (g *Game) ListenAddr() string {
	if g.travel == nil {
		return ""
	}
	return g.travel.Addr()
}
