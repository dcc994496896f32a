package controller

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"trail-arena/internal/game"
	"trail-arena/internal/room"
	"trail-arena/internal/session"
)

// Lobby greets every connection, serves the room listing and routes joins
// into room controllers.
type Lobby struct {
	repo *room.Repository

	mu          sync.Mutex
	sessions    *session.Group
	controllers map[*room.Room]*RoomController
}

// NewLobby builds the lobby over a room repository and hooks up the
// repository fanout.
func NewLobby(repo *room.Repository) *Lobby {
	l := &Lobby{
		repo:        repo,
		sessions:    session.NewGroup(),
		controllers: make(map[*room.Room]*RoomController),
	}
	repo.OnOpen.Subscribe(l.onRoomOpen)
	repo.OnClose.Subscribe(func(r *room.Room) {
		l.broadcast("room:close", map[string]any{"name": r.Name})
	})
	return l
}

// onRoomOpen announces a new room and wires its signals into the lobby
// listing, so browsing clients see rosters and games change live.
func (l *Lobby) onRoomOpen(r *room.Room) {
	onPlayers := func(*game.Player) {
		l.broadcast("room:players", map[string]any{"name": r.Name, "players": len(r.Players)})
	}
	r.OnPlayerJoin.Subscribe(onPlayers)
	r.OnPlayerLeave.Subscribe(onPlayers)
	r.OnGameNew.Subscribe(func(*game.Game) {
		l.broadcast("room:game", map[string]any{"name": r.Name, "game": true})
	})
	r.OnGameEnd.Subscribe(func(struct{}) {
		l.broadcast("room:game", map[string]any{"name": r.Name, "game": false})
	})
	r.Config.OnOpen.Subscribe(func(open bool) {
		l.broadcast("room:config:open", map[string]any{"name": r.Name, "open": open})
	})
	l.broadcast("room:open", r.Summarize())
}

func (l *Lobby) broadcast(name string, data any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions.AddEvent(name, data)
}

// Attach starts serving a fresh connection.
func (l *Lobby) Attach(s *session.Session) {
	l.mu.Lock()
	l.sessions.Add(s)
	l.mu.Unlock()

	s.On("room:fetch", func(_ json.RawMessage, _ func(any)) { l.onFetch(s) })
	s.On("room:create", func(d json.RawMessage, r func(any)) { l.onCreate(s, d, r) })
	s.On("room:join", func(d json.RawMessage, r func(any)) { l.onJoin(s, d, r) })
	s.OnClose.Subscribe(func(*session.Session) { l.onClose(s) })

	log.Printf("🔌 session %d connected", s.ID())
}

// SessionCount returns the number of connected sessions.
func (l *Lobby) SessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions.Len()
}

func (l *Lobby) onFetch(s *session.Session) {
	for _, r := range l.repo.All() {
		r.Mu.Lock()
		summary := r.Summarize()
		r.Mu.Unlock()
		s.AddEvent("room:open", summary)
	}
}

type createRequest struct {
	Name string `json:"name"`
}

func (l *Lobby) onCreate(_ *session.Session, data json.RawMessage, reply func(any)) {
	var req createRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	name := strings.TrimSpace(req.Name)
	created := l.repo.Create(name)
	if created == nil {
		ackError(reply, "name already used")
		return
	}
	log.Printf("🏠 room %q created", created.Name)
	if reply != nil {
		created.Mu.Lock()
		summary := created.Summarize()
		created.Mu.Unlock()
		reply(map[string]any{"success": true, "room": summary})
	}
}

type joinRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (l *Lobby) onJoin(s *session.Session, data json.RawMessage, reply func(any)) {
	var req joinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	r := l.repo.Get(req.Name)
	if r == nil {
		ackError(reply, "unknown room")
		return
	}
	rc := l.controllerFor(r)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.Config.Allow(req.Password) {
		ackError(reply, "wrong password")
		return
	}
	rc.Attach(s, reply)
}

// controllerFor returns the room's controller, creating it on first join.
func (l *Lobby) controllerFor(r *room.Room) *RoomController {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rc, ok := l.controllers[r]; ok {
		return rc
	}
	rc := NewRoomController(r, l.dropController)
	l.controllers[r] = rc
	return rc
}

// dropController runs under the emptied room's lock.
func (l *Lobby) dropController(rc *RoomController) {
	l.mu.Lock()
	delete(l.controllers, rc.room)
	l.mu.Unlock()
	l.repo.Remove(rc.room)
}

// onClose runs on the closing session's read goroutine.
func (l *Lobby) onClose(s *session.Session) {
	l.mu.Lock()
	l.sessions.Remove(s)
	controllers := make([]*RoomController, 0, len(l.controllers))
	for _, rc := range l.controllers {
		controllers = append(controllers, rc)
	}
	l.mu.Unlock()

	for _, rc := range controllers {
		rc.room.Mu.Lock()
		rc.Detach(s)
		rc.room.Mu.Unlock()
	}
	log.Printf("👋 session %d disconnected", s.ID())
}
