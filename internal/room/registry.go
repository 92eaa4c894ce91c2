// Package room holds the in-memory membership of every live room.
//
// Each room has its own lock; the registry lock only guards the id → room
// map. A room is published already locked by the goroutine creating it, and a
// room emptied by a leave is marked closed and unlinked before its lock is
// released, so a goroutine that raced onto a closed room simply retries. The
// lock order is always room, then registry.
package room

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/samber/lo"
)

var (
	// ErrUsernameTaken is returned when a room already has a member with the
	// exact (case-sensitive) username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAlreadyMember is returned when the connection is already in the room.
	ErrAlreadyMember = errors.New("connection already in room")
	// ErrNotMember is returned by Rejoin when the connection is not in the room.
	ErrNotMember = errors.New("connection not in room")
)

type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Info is a point-in-time view of one room.
type Info struct {
	RoomID    string   `json:"roomId"`
	Users     []string `json:"users"`
	UserCount int      `json:"userCount"`
}

type JoinResult struct {
	// Others are the members present before the join, in join order.
	Others []Participant
	// Created is true when the join brought the room into existence.
	Created bool
}

type LeaveResult struct {
	Participant Participant
	// Remaining are the members left after removal, in join order.
	Remaining []Participant
	// Deleted is true when the leave emptied and removed the room.
	Deleted bool
}

type room struct {
	id string

	mu      sync.Mutex
	closed  bool
	members []Participant
}

func (rm *room) indexOf(connID string) int {
	return slices.IndexFunc(rm.members, func(p Participant) bool { return p.ID == connID })
}

type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// lockRoom returns the live room for roomID with its lock held. When create is
// set and no room exists, a new empty room is published and created is true.
func (r *Registry) lockRoom(roomID string, create bool) (rm *room, created bool) {
	for {
		r.mu.Lock()
		rm, ok := r.rooms[roomID]
		if !ok {
			if !create {
				r.mu.Unlock()
				return nil, false
			}
			rm = &room{id: roomID}
			rm.mu.Lock()
			r.rooms[roomID] = rm
			r.mu.Unlock()
			return rm, true
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if !rm.closed {
			return rm, false
		}
		rm.mu.Unlock()
	}
}

// closeIfEmpty unlinks rm from the registry when it has no members. rm.mu
// must be held.
func (r *Registry) closeIfEmpty(rm *room) bool {
	if len(rm.members) > 0 {
		return false
	}
	rm.closed = true
	r.mu.Lock()
	if r.rooms[rm.id] == rm {
		delete(r.rooms, rm.id)
	}
	r.mu.Unlock()
	return true
}

// Join adds p to roomID, creating the room if needed. On success fn runs
// while the room is still held, so anything it emits is ordered with respect
// to every other membership change in the room.
func (r *Registry) Join(roomID string, p Participant, fn func(JoinResult)) error {
	rm, created := r.lockRoom(roomID, true)
	defer rm.mu.Unlock()

	if lo.ContainsBy(rm.members, func(m Participant) bool { return m.Username == p.Username }) {
		return ErrUsernameTaken
	}
	if rm.indexOf(p.ID) >= 0 {
		return ErrAlreadyMember
	}

	res := JoinResult{Others: slices.Clone(rm.members), Created: created}
	rm.members = append(rm.members, p)
	if fn != nil {
		fn(res)
	}
	return nil
}

// Rejoin re-enters a member of roomID under p.Username as if it had left and
// joined again: it moves to the end of the member list. It fails with
// ErrUsernameTaken when another member holds the name, leaving the room
// untouched. fn runs while the room is held.
func (r *Registry) Rejoin(roomID string, p Participant, fn func(LeaveResult, JoinResult)) error {
	rm, _ := r.lockRoom(roomID, false)
	if rm == nil {
		return ErrNotMember
	}
	defer rm.mu.Unlock()

	i := rm.indexOf(p.ID)
	if i < 0 {
		return ErrNotMember
	}
	if lo.ContainsBy(rm.members, func(m Participant) bool { return m.ID != p.ID && m.Username == p.Username }) {
		return ErrUsernameTaken
	}

	old := rm.members[i]
	rm.members = slices.Delete(rm.members, i, i+1)
	left := LeaveResult{Participant: old, Remaining: slices.Clone(rm.members)}
	joined := JoinResult{Others: slices.Clone(rm.members)}
	rm.members = append(rm.members, p)
	if fn != nil {
		fn(left, joined)
	}
	return nil
}

// Leave removes connID from roomID. An emptied room is deleted before fn runs.
// It returns false when the room or the member does not exist.
func (r *Registry) Leave(roomID, connID string, fn func(LeaveResult)) bool {
	rm, _ := r.lockRoom(roomID, false)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()

	i := rm.indexOf(connID)
	if i < 0 {
		return false
	}
	p := rm.members[i]
	rm.members = slices.Delete(rm.members, i, i+1)

	res := LeaveResult{Participant: p, Remaining: slices.Clone(rm.members)}
	res.Deleted = r.closeIfEmpty(rm)
	if fn != nil {
		fn(res)
	}
	return true
}

// WithMembers runs fn with the current members of roomID while the room is
// held. It returns false when the room does not exist.
func (r *Registry) WithMembers(roomID string, fn func(members []Participant)) bool {
	rm, _ := r.lockRoom(roomID, false)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()
	fn(slices.Clone(rm.members))
	return true
}

// AddParticipant inserts connID under username and reports whether the room
// was created by this call.
func (r *Registry) AddParticipant(roomID, connID, username string) (created bool, err error) {
	err = r.Join(roomID, Participant{ID: connID, Username: username}, func(res JoinResult) {
		created = res.Created
	})
	return created, err
}

// RemoveParticipant removes connID and returns how many members remain.
func (r *Registry) RemoveParticipant(roomID, connID string) (remaining int, removed bool) {
	removed = r.Leave(roomID, connID, func(res LeaveResult) {
		remaining = len(res.Remaining)
	})
	return remaining, removed
}

// ListOthers returns the members of roomID except excludeConnID.
func (r *Registry) ListOthers(roomID, excludeConnID string) []Participant {
	var out []Participant
	r.WithMembers(roomID, func(members []Participant) {
		out = lo.Filter(members, func(p Participant, _ int) bool { return p.ID != excludeConnID })
	})
	return out
}

// ParticipantsOf returns every member of roomID, or nil if it does not exist.
func (r *Registry) ParticipantsOf(roomID string) []Participant {
	var out []Participant
	r.WithMembers(roomID, func(members []Participant) {
		out = members
	})
	return out
}

func (r *Registry) liveRooms() []*room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Values(r.rooms)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	n := 0
	for _, rm := range r.liveRooms() {
		rm.mu.Lock()
		if !rm.closed && len(rm.members) > 0 {
			n++
		}
		rm.mu.Unlock()
	}
	return n
}

// Snapshot returns every non-empty room, sorted by id.
func (r *Registry) Snapshot() []Info {
	out := make([]Info, 0)
	for _, rm := range r.liveRooms() {
		rm.mu.Lock()
		if !rm.closed && len(rm.members) > 0 {
			out = append(out, Info{
				RoomID:    rm.id,
				Users:     lo.Map(rm.members, func(p Participant, _ int) string { return p.Username }),
				UserCount: len(rm.members),
			})
		}
		rm.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
