// Package online defines the session service the game talks to and an
// in-process implementation of it. Every request carries a caller-generated
// id and a completion sink; the service calls the sink exactly once per
// accepted request, from whatever goroutine it likes.
package online

import (
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"github.com/google/uuid"
)

// RequestID keys a request to its completion handler.
type RequestID string

func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// PlayerID is the platform's unique id for a local player.
type PlayerID string

// Op names the kind of request a completion belongs to.
type Op int

const (
	OpCreate Op = iota
	OpDestroy
	OpFind
	OpJoin
)

var opNames = map[Op]string{
	OpCreate:  "create",
	OpDestroy: "destroy",
	OpFind:    "find",
	OpJoin:    "join",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

// Completion is what a service reports when a request finishes.
type Completion struct {
	RequestID   RequestID
	Op          Op
	SessionName string
	Success     bool
	JoinResult  session.JoinResult
	Results     []session.SearchResult
	Err         error
}

// Sink receives completions.
type Sink func(Completion)

type CreateRequest struct {
	ID          RequestID
	Player      PlayerID
	PlayerName  string
	SessionName string
	Settings    session.Settings
}

type DestroyRequest struct {
	ID          RequestID
	Player      PlayerID
	SessionName string
}

type FindRequest struct {
	ID     RequestID
	Player PlayerID
	Search session.Search
}

type JoinRequest struct {
	ID          RequestID
	Player      PlayerID
	SessionName string
	Result      session.SearchResult
}

// Service is the platform session service. A request method returning a
// non-nil error was rejected outright and its sink is never called.
type Service interface {
	Name() string
	NamedSession(name string) (*session.NamedSession, bool)
	CreateSession(req CreateRequest, done Sink) error
	DestroySession(req DestroyRequest, done Sink) error
	FindSessions(req FindRequest, done Sink) error
	JoinSession(req JoinRequest, done Sink) error
	ResolveConnectString(sessionName string) (string, bool)
}
