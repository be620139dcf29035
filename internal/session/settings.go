package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Settings describes how a session is advertised.
type Settings struct {
	NumPublicConnections  int               `json:"numPublicConnections" yaml:"num_public_connections"`
	IsLANMatch            bool              `json:"isLanMatch" yaml:"lan_match"`
	AllowJoinInProgress   bool              `json:"allowJoinInProgress" yaml:"allow_join_in_progress"`
	AllowJoinViaPresence  bool              `json:"allowJoinViaPresence" yaml:"allow_join_via_presence"`
	ShouldAdvertise       bool              `json:"shouldAdvertise" yaml:"should_advertise"`
	UsesPresence          bool              `json:"usesPresence" yaml:"uses_presence"`
	UseLobbiesIfAvailable bool              `json:"useLobbiesIfAvailable" yaml:"use_lobbies_if_available"`
	Attributes            map[string]string `json:"attributes,omitempty" yaml:"attributes"`
}

// DefaultSettings returns the settings every hosted game advertises:
// four public slots on the internet, presence-scoped, FreeForAll.
func DefaultSettings() Settings {
	s := Settings{
		NumPublicConnections:  4,
		IsLANMatch:            false,
		AllowJoinInProgress:   true,
		AllowJoinViaPresence:  true,
		ShouldAdvertise:       true,
		UsesPresence:          true,
		UseLobbiesIfAvailable: true,
	}
	s.Set(MatchTypeKey, "FreeForAll")
	return s
}

// Set stores an advertised attribute.
func (s *Settings) Set(key, value string) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	s.Attributes[key] = value
}

// Get returns an advertised attribute.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.Attributes[key]
	return v, ok
}

// Clone returns a copy that shares no maps with s.
func (s Settings) Clone() Settings {
	if s.Attributes != nil {
		attrs := make(map[string]string, len(s.Attributes))
		for k, v := range s.Attributes {
			attrs[k] = v
		}
		s.Attributes = attrs
	}
	return s
}

var ErrInvalidSettings = errors.New("invalid session settings")

func (s Settings) Validate() error {
	if s.NumPublicConnections <= 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidSettings, s.NumPublicConnections)
	}
	return nil
}

// Search is the query a player sends when looking for sessions.
type Search struct {
	MaxResults int  `json:"maxResults"`
	IsLANQuery bool `json:"isLanQuery"`
	Presence   bool `json:"presence"`
}

// DefaultSearch is an internet-only, presence-scoped search with a large cap.
func DefaultSearch() Search {
	return Search{MaxResults: 10000, IsLANQuery: false, Presence: true}
}

// Matches reports whether a is visible to this search.
func (q Search) Matches(a *Advertisement) bool {
	if !a.Settings.ShouldAdvertise {
		return false
	}
	if a.Settings.IsLANMatch != q.IsLANQuery {
		return false
	}
	if q.Presence && !a.Settings.UsesPresence {
		return false
	}
	return a.Joinable()
}

// SearchResult is one session found by a search. Handle is opaque to callers
// and is handed back to the service on join.
type SearchResult struct {
	Handle                string   `json:"handle"`
	SessionID             string   `json:"sessionId"`
	OwningUserName        string   `json:"owningUserName"`
	Settings              Settings `json:"settings"`
	OpenPublicConnections int      `json:"openPublicConnections"`
	PingMs                int      `json:"pingMs"`
}

// MatchType returns the advertised MatchType attribute, or "".
func (r SearchResult) MatchType() string {
	v, _ := r.Settings.Get(MatchTypeKey)
	return v
}

// NamedSession is the local record of a session this player created or joined.
type NamedSession struct {
	Name        string   `json:"name"`
	SessionID   string   `json:"sessionId"`
	OwnerID     string   `json:"ownerId"`
	IsHost      bool     `json:"isHost"`
	Settings    Settings `json:"settings"`
	State       State    `json:"state"`
	HostAddress string   `json:"hostAddress,omitempty"`
}

// JoinResult is the outcome of a join request.
type JoinResult int

const (
	JoinSuccess JoinResult = iota
	JoinSessionIsFull
	JoinSessionDoesNotExist
	JoinCouldNotRetrieveAddress
	JoinAlreadyInSession
	JoinUnknownError
)

var joinResultNames = map[JoinResult]string{
	JoinSuccess:                 "success",
	JoinSessionIsFull:           "session_is_full",
	JoinSessionDoesNotExist:     "session_does_not_exist",
	JoinCouldNotRetrieveAddress: "could_not_retrieve_address",
	JoinAlreadyInSession:        "already_in_session",
	JoinUnknownError:            "unknown_error",
}

func (r JoinResult) String() string {
	if n, ok := joinResultNames[r]; ok {
		return n
	}
	return "unknown_error"
}

func (r JoinResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *JoinResult) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	for k, v := range joinResultNames {
		if v == n {
			*r = k
			return nil
		}
	}
	*r = JoinUnknownError
	return nil
}
