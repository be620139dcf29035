// Package mock fills a lobby with bot-hosted sessions so the menu has
// something to find without a second player.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const botOwnerPrefix = "bot:"

type botDef struct {
	name      string
	matchType string
	capacity  int
	pattern   string
}

var defaultBots = []botDef{
	{name: "Ironclad", matchType: "FreeForAll", capacity: 4, pattern: "filling"},
	{name: "Nimbus", matchType: "FreeForAll", capacity: 8, pattern: "steady"},
	{name: "Warden", matchType: "TeamDeathmatch", capacity: 6, pattern: "filling"},
	{name: "Patch", matchType: "FreeForAll", capacity: 2, pattern: "full"},
	{name: "Sable", matchType: "CaptureTheFlag", capacity: 10, pattern: "steady"},
}

type bot struct {
	def       botDef
	owner     string
	sessionID string
	players   []string
	fullTicks int
	round     int
}

type Generator struct {
	store *session.Store
	clock clockwork.Clock
	log   *zap.Logger
	rng   *rand.Rand
	bots  []*bot
	tick  int
}

func NewGenerator(store *session.Store, clock clockwork.Clock, log *zap.Logger) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		store: store,
		clock: clock,
		log:   log,
		rng:   rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Seed advertises one session per bot.
func (g *Generator) Seed() {
	g.bots = g.bots[:0]
	for _, def := range defaultBots {
		b := &bot{def: def, owner: botOwnerPrefix + def.name}
		g.advertise(b)
		g.bots = append(g.bots, b)
	}
}

// Start seeds the lobby and advances the bots every interval until ctx is
// done.
func (g *Generator) Start(ctx context.Context, interval time.Duration) {
	g.Seed()
	go g.run(ctx, interval)
}

func (g *Generator) run(ctx context.Context, interval time.Duration) {
	ticker := g.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, b := range g.bots {
				g.store.RemoveOwner(b.owner)
			}
			return
		case <-ticker.Chan():
			g.Step()
		}
	}
}

// Step advances every bot by one tick and refreshes their heartbeats.
func (g *Generator) Step() {
	g.tick++
	now := g.clock.Now()
	for _, b := range g.bots {
		if g.store.Touch(b.owner, now) == 0 {
			// Expired or withdrawn; come back with a new session.
			g.advertise(b)
			continue
		}
		switch b.def.pattern {
		case "filling":
			g.advanceFilling(b)
		case "steady":
			g.advanceSteady(b)
		case "full":
			g.fill(b, b.def.capacity)
		}
	}
}

// advanceFilling adds a player every other tick, starts the match when
// full and replaces the session a few ticks later.
func (g *Generator) advanceFilling(b *bot) {
	if len(b.players) < b.def.capacity {
		if g.tick%2 == 0 {
			g.fill(b, len(b.players)+1)
		}
		return
	}

	b.fullTicks++
	switch {
	case b.fullTicks == 1:
		g.store.SetState(b.sessionID, session.InProgress)
	case b.fullTicks >= 6:
		g.store.SetState(b.sessionID, session.Ended)
		g.store.Remove(b.sessionID)
		g.log.Debug("bot match over", zap.String("bot", b.def.name), zap.Int("round", b.round))
		g.advertise(b)
	}
}

// advanceSteady wanders between empty and half full.
func (g *Generator) advanceSteady(b *bot) {
	target := len(b.players) + g.rng.Intn(3) - 1
	if target < 0 {
		target = 0
	}
	if limit := b.def.capacity / 2; target > limit {
		target = limit
	}
	g.fill(b, target)
}

// fill reserves or releases bot players until n are seated.
func (g *Generator) fill(b *bot, n int) {
	for len(b.players) < n {
		player := fmt.Sprintf("%s-%d-%d", b.owner, b.round, len(b.players)+1)
		if _, res := g.store.Reserve(b.sessionID, player); res != session.JoinSuccess {
			return
		}
		b.players = append(b.players, player)
	}
	for len(b.players) > n {
		last := b.players[len(b.players)-1]
		g.store.Release(b.sessionID, last)
		b.players = b.players[:len(b.players)-1]
	}
}

func (g *Generator) advertise(b *bot) {
	now := g.clock.Now()
	settings := session.DefaultSettings()
	settings.NumPublicConnections = b.def.capacity
	settings.Set(session.MatchTypeKey, b.def.matchType)

	b.round++
	b.players = nil
	b.fullTicks = 0
	b.sessionID = uuid.NewString()

	g.store.Update(&session.Advertisement{
		ID:              b.sessionID,
		Name:            session.DefaultName,
		OwnerID:         b.owner,
		OwnerName:       b.def.name,
		HostAddress:     fmt.Sprintf("%s.bots.invalid:7777", b.def.name),
		Settings:        settings,
		State:           session.Pending,
		CreatedAt:       now,
		LastHeartbeatAt: now,
	})
}
