package coordinator

import (
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/online"
)

// Color tags an on-screen message.
type Color int

const (
	Blue Color = iota
	Red
	Yellow
	Cyan
)

var colorNames = map[Color]string{
	Blue:   "blue",
	Red:    "red",
	Yellow: "yellow",
	Cyan:   "cyan",
}

func (c Color) String() string {
	if n, ok := colorNames[c]; ok {
		return n
	}
	return "unknown"
}

// Message is a line shown to the player for Duration.
type Message struct {
	Color    Color
	Duration time.Duration
	Text     string
}

// TravelType says how a client travel address is interpreted.
type TravelType int

const (
	TravelAbsolute TravelType = iota
	TravelRelative
)

// Host is the game the coordinator runs inside.
type Host interface {
	// LocalPlayer returns the first local player, if one exists.
	LocalPlayer() (id online.PlayerID, name string, ok bool)
	Notify(msg Message)
	// ServerTravel loads a map as a listen server, e.g. "/Game/Maps/Lobby?listen".
	ServerTravel(url string) error
	ClientTravel(address string, travel TravelType) error
}

// Poster schedules work on the game thread. *frame.Queue implements it.
type Poster interface {
	Post(fn func())
}
