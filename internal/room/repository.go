package room

import (
	"sync"

	"trail-arena/internal/game"
)

// Repository tracks every live room by name.
type Repository struct {
	mu    sync.Mutex
	rooms map[string]*Room

	// OnOpen and OnClose announce rooms appearing and disappearing; the
	// lobby fans them out to connected sessions.
	OnOpen  game.Signal[*Room]
	OnClose game.Signal[*Room]
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{rooms: make(map[string]*Room)}
}

// Create adds a room. An empty name draws random ones until an unused name
// comes up. Returns nil if the requested name is taken.
func (r *Repository) Create(name string) *Room {
	r.mu.Lock()
	if name == "" {
		name = RandomName()
		for _, taken := r.rooms[name]; taken; _, taken = r.rooms[name] {
			name = RandomName()
		}
	} else if _, taken := r.rooms[name]; taken {
		r.mu.Unlock()
		return nil
	}
	created := New(name)
	r.rooms[name] = created
	r.mu.Unlock()

	r.OnOpen.Emit(created)
	return created
}

// Get returns the room with the given name, or nil.
func (r *Repository) Get(name string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[name]
}

// Remove drops an emptied room and announces its closing.
func (r *Repository) Remove(room *Room) {
	r.mu.Lock()
	current, ok := r.rooms[room.Name]
	if !ok || current != room {
		r.mu.Unlock()
		return
	}
	delete(r.rooms, room.Name)
	r.mu.Unlock()

	r.OnClose.Emit(room)
}

// All returns a snapshot of every room.
func (r *Repository) All() []*Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
