// Package session tracks which username and room each live connection is
// bound to.
package session

import (
	"sync"
	"time"
)

// ClientInfo is transport metadata captured when a connection opens.
type ClientInfo struct {
	UserAgent   string
	RemoteIP    string
	ConnectedAt time.Time
}

// Identity is the per-connection record. Username and RoomID are empty until
// the connection joins a room.
type Identity struct {
	Username string
	RoomID   string
	Client   ClientInfo
}

// InRoom reports whether the identity is bound to a room.
func (i Identity) InRoom() bool {
	return i.RoomID != ""
}

// Store maps connection ids to identities. It is safe for concurrent use;
// operations on different connection ids are independent.
type Store struct {
	mu sync.RWMutex
	m  map[string]Identity
}

func NewStore() *Store {
	return &Store{m: make(map[string]Identity)}
}

// Open records client metadata for a new connection.
func (s *Store) Open(connID string, info ClientInfo) {
	s.mu.Lock()
	s.m[connID] = Identity{Client: info}
	s.mu.Unlock()
}

// SetIdentity binds connID to username and roomID, keeping any client
// metadata recorded by Open.
func (s *Store) SetIdentity(connID, username, roomID string) {
	s.mu.Lock()
	id := s.m[connID]
	id.Username = username
	id.RoomID = roomID
	s.m[connID] = id
	s.mu.Unlock()
}

// Identity returns the record for connID.
func (s *Store) Identity(connID string) (Identity, bool) {
	s.mu.RLock()
	id, ok := s.m[connID]
	s.mu.RUnlock()
	return id, ok
}

// Clear erases connID and returns the last record.
func (s *Store) Clear(connID string) (Identity, bool) {
	s.mu.Lock()
	id, ok := s.m[connID]
	delete(s.m, connID)
	s.mu.Unlock()
	return id, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
