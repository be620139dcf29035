package lobby

import (
	"encoding/json"

	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
)

type MessageType string

const (
	MsgHello     MessageType = "hello"
	MsgCreate    MessageType = "create"
	MsgDestroy   MessageType = "destroy"
	MsgFind      MessageType = "find"
	MsgJoin      MessageType = "join"
	MsgLeave     MessageType = "leave"
	MsgHeartbeat MessageType = "heartbeat"
	MsgResult    MessageType = "result"
)

// Envelope frames every message in both directions. A result carries the id
// of the request it answers.
type Envelope struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type HelloPayload struct {
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName"`
	Address    string `json:"address,omitempty"` // where this player's listen server is reachable
}

type CreatePayload struct {
	SessionName string           `json:"sessionName"`
	Settings    session.Settings `json:"settings"`
}

type DestroyPayload struct {
	SessionName string `json:"sessionName"`
}

// LeavePayload gives up a slot in a joined session.
type LeavePayload struct {
	SessionName string `json:"sessionName"`
}

type FindPayload struct {
	Search session.Search `json:"search"`
}

type JoinPayload struct {
	SessionName string `json:"sessionName"`
	Handle      string `json:"handle"`
}

type ResultPayload struct {
	OK            bool                   `json:"ok"`
	Error         string                 `json:"error,omitempty"`
	PlayerID      string                 `json:"playerId,omitempty"`
	Session       *session.NamedSession  `json:"session,omitempty"`
	Results       []session.SearchResult `json:"results,omitempty"`
	JoinResult    session.JoinResult     `json:"joinResult"`
	ConnectString string                 `json:"connectString,omitempty"`
}

func encode(typ MessageType, id string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, ID: id, Payload: raw})
}
