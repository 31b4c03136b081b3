package server

import (
	"errors"
	"sync"
)

var (
	errRoomExists   = errors.New("room already exists")
	errRoomNotFound = errors.New("room not found")
	errRoomFull     = errors.New("room already has a guest")
)

// Room holds the two peers of one rendezvous exchange. Rooms are single-use:
// the room dies with its host and the id is never reused.
type Room struct {
	ID string

	mu    sync.Mutex
	host  *peer
	guest *peer
}

// attachGuest claims the guest slot. Only one guest ever wins a room; the
// first connection takes it and later ones are refused.
func (r *Room) attachGuest(p *peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.guest != nil {
		return errRoomFull
	}
	r.guest = p
	return nil
}

// counterpart returns the peer on the other side of the room, or nil if that
// side has not joined or already left.
func (r *Room) counterpart(role string) *peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == RoleHost {
		return r.guest
	}
	return r.host
}

// detachGuest frees the guest slot.
func (r *Room) detachGuest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guest = nil
}

// Registry tracks all live rooms by id.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Create registers a new room owned by host. A colliding id is refused so a
// stale or duplicated share link can never hijack a live exchange.
func (reg *Registry) Create(id string, host *peer) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[id]; exists {
		return nil, errRoomExists
	}
	room := &Room{ID: id, host: host}
	reg.rooms[id] = room
	return room, nil
}

// Get looks up a live room.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return nil, errRoomNotFound
	}
	return room, nil
}

// Remove drops a room from the registry. Removing an unknown id is a no-op.
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
}

// Len reports how many rooms are live.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
