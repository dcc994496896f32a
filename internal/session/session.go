// Package session implements the websocket event protocol: frames are JSON
// arrays of events, each event a [name, data, callId] tuple with the tail
// elements optional. Events queue per session and flush on a fixed interval,
// so one frame carries a whole tick's worth of updates.
package session

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trail-arena/internal/game"
)

const pingInterval = time.Second

// messageObserver, when set, fires once per inbound frame. Wired once at
// startup before any session connects.
var messageObserver func()

// SetMessageObserver installs the inbound frame counting hook.
func SetMessageObserver(fn func()) { messageObserver = fn }

// FlushInterval is the outbox flush period for sessions attached to a
// running game. Lobby sessions use 0 and send immediately.
const FlushInterval = time.Millisecond

// Handler is one registered listener for a named inbound event. reply is
// non-nil when the client asked for an acknowledgement.
type Handler struct {
	name string
	fn   func(data json.RawMessage, reply func(any))
}

// Session is one connected client. Outbound events queue in the outbox and
// flush as a single frame; inbound frames dispatch to named handlers on the
// read goroutine.
type Session struct {
	id       int64
	conn     *websocket.Conn
	interval time.Duration

	active    atomic.Bool
	connected atomic.Bool
	latency   atomic.Int64

	// Players this session controls in its current room.
	Players []*game.Player

	outMu     sync.Mutex
	outbox    []json.RawMessage
	flushStop chan struct{}

	pingMu   sync.Mutex
	pingStop chan struct{}

	writeMu sync.Mutex

	cbMu      sync.Mutex
	callbacks map[int64]func(json.RawMessage)
	callCount int64

	handlerMu sync.Mutex
	handlers  map[string][]*Handler

	closeOnce sync.Once
	done      chan struct{}

	// OnClose fires on the read goroutine once the connection is gone.
	OnClose game.Signal[*Session]
	// OnPlayersClear fires before the session forgets its players.
	OnPlayersClear game.Signal[*Session]
}

// New wraps an upgraded connection. interval is the outbox flush period;
// 0 sends every event immediately.
func New(id int64, conn *websocket.Conn, interval time.Duration) *Session {
	s := &Session{
		id:        id,
		conn:      conn,
		interval:  interval,
		callbacks: make(map[int64]func(json.RawMessage)),
		handlers:  make(map[string][]*Handler),
		done:      make(chan struct{}),
	}
	s.active.Store(true)
	s.connected.Store(true)

	s.On("whoami", func(_ json.RawMessage, reply func(any)) {
		if reply != nil {
			reply(s.id)
		}
	})
	s.On("pong", s.onPong)
	s.On("activity", func(data json.RawMessage, _ func(any)) {
		var active bool
		if err := json.Unmarshal(data, &active); err == nil {
			s.active.Store(active)
		}
	})
	return s
}

// ID returns the session id.
func (s *Session) ID() int64 { return s.id }

// IsActive reports whether the client tab is focused.
func (s *Session) IsActive() bool { return s.active.Load() }

// Connected reports whether the socket is still up.
func (s *Session) Connected() bool { return s.connected.Load() }

// Latency returns the last measured round trip in milliseconds.
func (s *Session) Latency() int64 { return s.latency.Load() }

// SetInterval switches the flush period, when the session moves between the
// lobby and a running game. A positive interval runs a flush goroutine; zero
// stops it and drains anything still queued.
func (s *Session) SetInterval(interval time.Duration) {
	s.outMu.Lock()
	if s.flushStop != nil {
		close(s.flushStop)
		s.flushStop = nil
	}
	s.interval = interval
	if interval > 0 {
		stop := make(chan struct{})
		s.flushStop = stop
		go s.flushLoop(interval, stop)
	}
	s.outMu.Unlock()
	if interval == 0 {
		s.flush()
	}
}

// On registers a handler for a named inbound event and returns its removal
// handle.
func (s *Session) On(name string, fn func(json.RawMessage, func(any))) *Handler {
	h := &Handler{name: name, fn: fn}
	s.handlerMu.Lock()
	s.handlers[name] = append(s.handlers[name], h)
	s.handlerMu.Unlock()
	return h
}

// Off removes a handler registered with On.
func (s *Session) Off(h *Handler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	list := s.handlers[h.name]
	for i, registered := range list {
		if registered == h {
			s.handlers[h.name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// AddEvent queues an event, or sends it immediately for intervalless
// sessions.
func (s *Session) AddEvent(name string, data any) {
	s.queue(s.encode(name, data, nil))
}

// AddEventWithCallback queues an event carrying a call id; the client's
// answer resolves cb.
func (s *Session) AddEventWithCallback(name string, data any, cb func(json.RawMessage)) {
	s.cbMu.Lock()
	s.callCount++
	id := s.callCount
	s.callbacks[id] = cb
	s.cbMu.Unlock()
	s.queue(s.encode(name, data, &id))
}

// AddEvents queues a prebuilt batch, preserving order.
func (s *Session) AddEvents(events []Event) {
	encoded := make([]json.RawMessage, 0, len(events))
	for _, e := range events {
		encoded = append(encoded, s.encode(e.Name, e.Data, nil))
	}
	s.outMu.Lock()
	immediate := s.interval == 0
	if !immediate {
		s.outbox = append(s.outbox, encoded...)
	}
	s.outMu.Unlock()
	if immediate {
		s.write(encoded)
	}
}

// Send bypasses the outbox and writes the event in its own frame.
func (s *Session) Send(name string, data any) {
	s.write([]json.RawMessage{s.encode(name, data, nil)})
}

// Event is one named outbound event.
type Event struct {
	Name string
	Data any
}

func (s *Session) encode(name string, data any, callID *int64) json.RawMessage {
	var event []any
	switch {
	case callID != nil:
		event = []any{name, data, *callID}
	case data != nil:
		event = []any{name, data}
	default:
		event = []any{name}
	}
	raw, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ session %d: marshal %s: %v", s.id, name, err)
		return json.RawMessage("null")
	}
	return raw
}

func (s *Session) queue(event json.RawMessage) {
	s.outMu.Lock()
	immediate := s.interval == 0
	if !immediate {
		s.outbox = append(s.outbox, event)
	}
	s.outMu.Unlock()
	if immediate {
		s.write([]json.RawMessage{event})
	}
}

func (s *Session) flush() {
	s.outMu.Lock()
	if len(s.outbox) == 0 {
		s.outMu.Unlock()
		return
	}
	batch := s.outbox
	s.outbox = nil
	s.outMu.Unlock()
	s.write(batch)
}

func (s *Session) write(events []json.RawMessage) {
	if len(events) == 0 || s.conn == nil || !s.connected.Load() {
		return
	}
	frame, err := json.Marshal(events)
	if err != nil {
		log.Printf("⚠️ session %d: marshal frame: %v", s.id, err)
		return
	}
	s.writeMu.Lock()
	err = s.conn.WriteMessage(websocket.TextMessage, frame)
	s.writeMu.Unlock()
	if err != nil {
		s.Close()
	}
}

// Run pumps the connection until it closes, then announces the close on the
// same goroutine. Callers block on it, one goroutine per session. Latency
// pings only run between StartPing and StopPing.
func (s *Session) Run() {
	s.outMu.Lock()
	if s.interval > 0 && s.flushStop == nil {
		stop := make(chan struct{})
		s.flushStop = stop
		go s.flushLoop(s.interval, stop)
	}
	s.outMu.Unlock()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatch(data)
	}

	s.Close()
	s.connected.Store(false)
	s.OnClose.Emit(s)
}

// Close tears the connection down; Run unwinds and fires OnClose.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

func (s *Session) flushLoop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// StartPing begins the latency ping loop, when the session joins a game.
func (s *Session) StartPing() {
	s.pingMu.Lock()
	defer s.pingMu.Unlock()
	if s.pingStop != nil {
		return
	}
	stop := make(chan struct{})
	s.pingStop = stop
	go s.pingLoop(stop)
}

// StopPing halts the latency ping loop, when the session leaves a game.
func (s *Session) StopPing() {
	s.pingMu.Lock()
	defer s.pingMu.Unlock()
	if s.pingStop != nil {
		close(s.pingStop)
		s.pingStop = nil
	}
}

func (s *Session) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Send("ping", time.Now().UnixMilli())
		}
	}
}

func (s *Session) onPong(data json.RawMessage, _ func(any)) {
	var sent int64
	if err := json.Unmarshal(data, &sent); err != nil {
		return
	}
	latency := time.Now().UnixMilli() - sent
	s.latency.Store(latency)
	s.Send("latency", latency)
}

// dispatch unpacks one inbound frame. Events starting with a number resolve
// a pending callback; events starting with a name invoke its handlers, with
// a reply function when a call id is attached.
func (s *Session) dispatch(frame []byte) {
	if messageObserver != nil {
		messageObserver()
	}
	var events []json.RawMessage
	if err := json.Unmarshal(frame, &events); err != nil {
		log.Printf("⚠️ session %d: bad frame: %v", s.id, err)
		return
	}
	for _, raw := range events {
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) == 0 {
			continue
		}

		var name string
		if err := json.Unmarshal(parts[0], &name); err != nil {
			s.resolveCallback(parts)
			continue
		}

		var data json.RawMessage
		if len(parts) > 1 {
			data = parts[1]
		}
		var reply func(any)
		if len(parts) > 2 {
			var callID int64
			if err := json.Unmarshal(parts[2], &callID); err == nil {
				reply = func(result any) {
					s.write([]json.RawMessage{s.encodeResult(callID, result)})
				}
			}
		}

		s.handlerMu.Lock()
		handlers := make([]*Handler, len(s.handlers[name]))
		copy(handlers, s.handlers[name])
		s.handlerMu.Unlock()
		for _, h := range handlers {
			h.fn(data, reply)
		}
	}
}

func (s *Session) encodeResult(callID int64, result any) json.RawMessage {
	raw, err := json.Marshal([]any{callID, result})
	if err != nil {
		log.Printf("⚠️ session %d: marshal result: %v", s.id, err)
		return json.RawMessage("null")
	}
	return raw
}

func (s *Session) resolveCallback(parts []json.RawMessage) {
	var callID int64
	if err := json.Unmarshal(parts[0], &callID); err != nil {
		return
	}
	s.cbMu.Lock()
	cb := s.callbacks[callID]
	delete(s.callbacks, callID)
	s.cbMu.Unlock()
	if cb == nil {
		return
	}
	var result json.RawMessage
	if len(parts) > 1 {
		result = parts[1]
	}
	cb(result)
}

// ClearPlayers announces and then forgets the players this session controls.
func (s *Session) ClearPlayers() {
	s.OnPlayersClear.Emit(s)
	s.Players = nil
}

// AddPlayer records a player as controlled by this session.
func (s *Session) AddPlayer(p *game.Player) {
	s.Players = append(s.Players, p)
}

// RemovePlayer forgets one controlled player.
func (s *Session) RemovePlayer(p *game.Player) {
	for i, player := range s.Players {
		if player == p {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return
		}
	}
}

// SessionInfo is the wire form of a session.
type SessionInfo struct {
	ID      int64             `json:"id"`
	Active  bool              `json:"active"`
	Players []game.PlayerInfo `json:"players"`
}

// Serialize returns the wire form of the session.
func (s *Session) Serialize() SessionInfo {
	info := SessionInfo{
		ID:      s.id,
		Active:  s.IsActive(),
		Players: make([]game.PlayerInfo, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		info.Players = append(info.Players, p.Serialize())
	}
	return info
}
