package session

import (
	"encoding/json"
	"time"
)

// DefaultName is the session name every player uses for its game session.
const DefaultName = "GameSession"

// MatchTypeKey is the advertised attribute used to filter search results.
const MatchTypeKey = "MatchType"

// State is the lifecycle state of an advertised session.
type State int

const (
	Pending State = iota
	InProgress
	Ended
)

var stateNames = map[State]string{
	Pending:    "pending",
	InProgress: "in_progress",
	Ended:      "ended",
}

var stateFromName = map[string]State{
	"pending":     Pending,
	"in_progress": InProgress,
	"ended":       Ended,
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := stateFromName[n]; ok {
		*s = v
	}
	return nil
}

// Advertisement is a session as the session service sees it: owned by a host,
// discoverable by others until it ends or the host goes away.
type Advertisement struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	OwnerID         string    `json:"ownerId"`
	OwnerName       string    `json:"ownerName"`
	HostAddress     string    `json:"hostAddress,omitempty"`
	Settings        Settings  `json:"settings"`
	State           State     `json:"state"`
	Players         []string  `json:"players,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LastHeartbeatAt time.Time `json:"lastHeartbeatAt"`
}

// Clone returns a deep copy of the advertisement.
func (a *Advertisement) Clone() *Advertisement {
	c := *a
	c.Settings = a.Settings.Clone()
	if len(a.Players) > 0 {
		c.Players = append([]string(nil), a.Players...)
	}
	return &c
}

// OpenPublicConnections is the number of slots still free.
func (a *Advertisement) OpenPublicConnections() int {
	n := a.Settings.NumPublicConnections - len(a.Players)
	if n < 0 {
		return 0
	}
	return n
}

// HasPlayer reports whether playerID already occupies a slot.
func (a *Advertisement) HasPlayer(playerID string) bool {
	for _, p := range a.Players {
		if p == playerID {
			return true
		}
	}
	return false
}

// Joinable reports whether a new player may take a slot right now.
func (a *Advertisement) Joinable() bool {
	switch a.State {
	case Ended:
		return false
	case InProgress:
		if !a.Settings.AllowJoinInProgress {
			return false
		}
	}
	return a.OpenPublicConnections() > 0
}

// Result converts the advertisement into what a searching player sees. The
// host address is never part of a search result; it is resolved on join.
func (a *Advertisement) Result(pingMs int) SearchResult {
	return SearchResult{
		Handle:                a.ID,
		SessionID:             a.ID,
		OwningUserName:        a.OwnerName,
		Settings:              a.Settings.Clone(),
		OpenPublicConnections: a.OpenPublicConnections(),
		PingMs:                pingMs,
	}
}
