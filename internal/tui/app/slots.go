package app

import (
	"strings"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/charmbracelet/harmonica"
)

const slotBarWidth = 10

type slotBar struct {
	pos, vel float64
}

// slotBars eases each listed session's occupancy toward its latest value.
type slotBars struct {
	spring harmonica.Spring
	bars   map[string]*slotBar
}

func newSlotBars(frame time.Duration) *slotBars {
	fps := int(time.Second / frame)
	if fps <= 0 {
		fps = 30
	}
	return &slotBars{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
		bars:   make(map[string]*slotBar),
	}
}

func occupancy(r session.SearchResult) float64 {
	capacity := r.Settings.NumPublicConnections
	if capacity <= 0 {
		return 0
	}
	used := capacity - r.OpenPublicConnections
	if used < 0 {
		used = 0
	}
	return float64(used) / float64(capacity)
}

// step advances one frame and forgets sessions no longer listed.
func (s *slotBars) step(results []session.SearchResult) {
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.SessionID] = true
		b, ok := s.bars[r.SessionID]
		if !ok {
			b = &slotBar{}
			s.bars[r.SessionID] = b
		}
		b.pos, b.vel = s.spring.Update(b.pos, b.vel, occupancy(r))
	}
	for id := range s.bars {
		if !seen[id] {
			delete(s.bars, id)
		}
	}
}

func (s *slotBars) render(sessionID string) string {
	var pos float64
	if b, ok := s.bars[sessionID]; ok {
		pos = b.pos
	}
	filled := int(pos*slotBarWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > slotBarWidth {
		filled = slotBarWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", slotBarWidth-filled)
}
