package session

import (
	"sort"
	"sync"
	"time"
)

// Store holds advertised sessions keyed by session id. All accessors return
// copies so callers can never mutate stored state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Advertisement
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Advertisement),
	}
}

func (s *Store) Get(id string) (*Advertisement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// GetAll returns every session, oldest first.
func (s *Store) GetAll() []*Advertisement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Advertisement, 0, len(s.sessions))
	for _, a := range s.sessions {
		result = append(result, a.Clone())
	}
	sortByAge(result)
	return result
}

func (s *Store) Update(a *Advertisement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[a.ID] = a.Clone()
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// FindOwned returns the session ownerID advertises under name.
func (s *Store) FindOwned(ownerID, name string) (*Advertisement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.sessions {
		if a.OwnerID == ownerID && a.Name == name {
			return a.Clone(), true
		}
	}
	return nil, false
}

// Search returns the sessions visible to q, oldest first, capped at
// q.MaxResults. Sessions owned by excludeOwner are skipped.
func (s *Store) Search(q Search, excludeOwner string) []*Advertisement {
	s.mu.RLock()
	result := make([]*Advertisement, 0)
	for _, a := range s.sessions {
		if a.OwnerID == excludeOwner {
			continue
		}
		if q.Matches(a) {
			result = append(result, a.Clone())
		}
	}
	s.mu.RUnlock()

	sortByAge(result)
	if q.MaxResults > 0 && len(result) > q.MaxResults {
		result = result[:q.MaxResults]
	}
	return result
}

// Reserve takes a slot in session id for playerID.
func (s *Store) Reserve(id, playerID string) (*Advertisement, JoinResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[id]
	if !ok || a.State == Ended {
		return nil, JoinSessionDoesNotExist
	}
	if a.OwnerID == playerID || a.HasPlayer(playerID) {
		return nil, JoinAlreadyInSession
	}
	if !a.Joinable() {
		return nil, JoinSessionIsFull
	}
	a.Players = append(a.Players, playerID)
	return a.Clone(), JoinSuccess
}

// Release frees the slot playerID holds in session id.
func (s *Store) Release(id, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[id]
	if !ok {
		return false
	}
	for i, p := range a.Players {
		if p == playerID {
			a.Players = append(a.Players[:i], a.Players[i+1:]...)
			return true
		}
	}
	return false
}

// Touch records a heartbeat for every session owned by ownerID.
func (s *Store) Touch(ownerID string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.sessions {
		if a.OwnerID == ownerID {
			a.LastHeartbeatAt = now
			n++
		}
	}
	return n
}

// SetState moves session id to state.
func (s *Store) SetState(id string, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[id]
	if !ok {
		return false
	}
	a.State = state
	return true
}

// RemoveOwner drops every session owned by ownerID and returns their ids.
func (s *Store) RemoveOwner(ownerID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, a := range s.sessions {
		if a.OwnerID == ownerID {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// Expire drops sessions whose last heartbeat is older than cutoff.
func (s *Store) Expire(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, a := range s.sessions {
		if a.LastHeartbeatAt.Before(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func sortByAge(list []*Advertisement) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
