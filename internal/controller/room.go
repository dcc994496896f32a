package controller

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"trail-arena/internal/game"
	"trail-arena/internal/room"
	"trail-arena/internal/session"
)

const (
	// roomCloseDelay keeps an emptied room around for quick rejoins.
	roomCloseDelay = 10 * time.Second
	// launchCountdown is the delay between the master hitting launch and
	// the game starting.
	launchCountdown = 5 * time.Second
)

// RoomController runs one room: roster management, chat, configuration and
// the handoff into a GameController when a match starts.
type RoomController struct {
	room    *room.Room
	clients *session.Group
	chat    room.Chat

	gameCtl *GameController
	master  *session.Session

	masterHandlers []*session.Handler
	handlers       map[*session.Session][]*session.Handler

	launchTimer *time.Timer
	closeTimer  *time.Timer

	// onEmpty fires once the room stayed empty past the close delay.
	onEmpty func(*RoomController)
}

// NewRoomController builds the controller for a room. onEmpty is invoked,
// under the room lock, when the room should be torn down.
func NewRoomController(r *room.Room, onEmpty func(*RoomController)) *RoomController {
	c := &RoomController{
		room:     r,
		clients:  session.NewGroup(),
		handlers: make(map[*session.Session][]*session.Handler),
		onEmpty:  onEmpty,
	}
	r.OnPlayerJoin.Subscribe(func(p *game.Player) {
		c.clients.AddEvent("room:join", map[string]any{"player": p.Serialize()})
	})
	r.OnPlayerLeave.Subscribe(func(p *game.Player) {
		c.clients.AddEvent("room:leave", map[string]any{"player": p.ID})
	})
	r.OnGameNew.Subscribe(c.onGameNew)
	return c
}

// Room returns the controlled room.
func (c *RoomController) Room() *room.Room { return c.room }

// Empty reports whether no sessions remain attached.
func (c *RoomController) Empty() bool { return c.clients.Len() == 0 }

type joinAck struct {
	Success  bool                  `json:"success"`
	Error    string                `json:"error,omitempty"`
	Room     *room.RoomInfo        `json:"room,omitempty"`
	Master   any                   `json:"master"`
	Clients  []session.SessionInfo `json:"clients"`
	Messages []room.Message        `json:"messages"`
	Votes    []any                 `json:"votes"`
}

// Attach joins a session to the room and acks with the full room state.
// Caller holds the room lock.
func (c *RoomController) Attach(s *session.Session, reply func(any)) {
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}
	c.clients.Add(s)
	c.attachEvents(s)

	if reply != nil {
		info := c.room.Serialize()
		ack := joinAck{
			Success:  true,
			Room:     &info,
			Master:   c.masterID(),
			Messages: c.chat.Messages(),
			Votes:    []any{},
		}
		for _, member := range c.clients.Sessions() {
			ack.Clients = append(ack.Clients, member.Serialize())
		}
		if ack.Messages == nil {
			ack.Messages = []room.Message{}
		}
		reply(ack)
	}
	c.clients.AddEvent("client:add", s.Serialize())

	s.ClearPlayers()
	if c.room.Game != nil && c.gameCtl != nil {
		c.gameCtl.Attach(s)
		s.AddEvent("room:game:start", nil)
	}
	c.nominate()
}

// Detach removes a session, its players and, if the room empties, schedules
// its closing. Caller holds the room lock.
func (c *RoomController) Detach(s *session.Session) {
	if !c.clients.Contains(s) {
		return
	}
	c.clients.Remove(s)

	if c.gameCtl != nil {
		c.gameCtl.Detach(s)
	}
	for _, p := range append([]*game.Player(nil), s.Players...) {
		c.room.RemovePlayer(p)
	}
	s.ClearPlayers()

	for _, h := range c.handlers[s] {
		s.Off(h)
	}
	delete(c.handlers, s)

	c.clients.AddEvent("client:remove", s.ID())
	c.nominate()
	c.scheduleCloseCheck()
}

func (c *RoomController) scheduleCloseCheck() {
	if !c.Empty() || c.closeTimer != nil {
		return
	}
	c.closeTimer = time.AfterFunc(roomCloseDelay, func() {
		c.room.Mu.Lock()
		defer c.room.Mu.Unlock()
		if c.closeTimer == nil || !c.Empty() {
			return
		}
		c.closeTimer = nil
		log.Printf("🚪 room %q empty for %s, closing", c.room.Name, roomCloseDelay)
		c.onEmpty(c)
	})
}

func (c *RoomController) attachEvents(s *session.Session) {
	locked := func(fn func(json.RawMessage, func(any))) func(json.RawMessage, func(any)) {
		return func(data json.RawMessage, reply func(any)) {
			c.room.Mu.Lock()
			defer c.room.Mu.Unlock()
			fn(data, reply)
		}
	}
	c.handlers[s] = []*session.Handler{
		s.On("player:add", locked(func(d json.RawMessage, r func(any)) { c.onPlayerAdd(s, d, r) })),
		s.On("player:remove", locked(func(d json.RawMessage, r func(any)) { c.onPlayerRemove(s, d, r) })),
		s.On("room:talk", locked(func(d json.RawMessage, r func(any)) { c.onTalk(s, d, r) })),
		s.On("room:color", locked(func(d json.RawMessage, r func(any)) { c.onColor(s, d, r) })),
		s.On("room:name", locked(func(d json.RawMessage, r func(any)) { c.onName(s, d, r) })),
		s.On("room:ready", locked(func(d json.RawMessage, r func(any)) { c.onReady(s, d, r) })),
		s.On("players:clear", locked(func(json.RawMessage, func(any)) { c.onPlayersClear(s) })),
		s.On("room:leave", locked(func(json.RawMessage, func(any)) { c.Detach(s) })),
	}
}

func (c *RoomController) masterID() any {
	if c.master == nil {
		return nil
	}
	return c.master.ID()
}

// nominate hands room control to the first active session with players.
func (c *RoomController) nominate() {
	var candidate *session.Session
	for _, s := range c.clients.Sessions() {
		if s.IsActive() && len(s.Players) > 0 {
			candidate = s
			break
		}
	}
	if candidate == c.master {
		return
	}

	if c.master != nil {
		for _, h := range c.masterHandlers {
			c.master.Off(h)
		}
		c.masterHandlers = nil
	}
	c.master = candidate
	if candidate != nil {
		c.attachMasterEvents(candidate)
	}
	c.clients.AddEvent("room:master", map[string]any{"client": c.masterID()})
}

func (c *RoomController) attachMasterEvents(s *session.Session) {
	locked := func(fn func(json.RawMessage, func(any))) func(json.RawMessage, func(any)) {
		return func(data json.RawMessage, reply func(any)) {
			c.room.Mu.Lock()
			defer c.room.Mu.Unlock()
			fn(data, reply)
		}
	}
	c.masterHandlers = []*session.Handler{
		s.On("room:config:open", locked(c.onConfigOpen)),
		s.On("room:config:max-score", locked(c.onConfigMaxScore)),
		s.On("room:config:variable", locked(c.onConfigVariable)),
		s.On("room:config:bonus", locked(c.onConfigBonus)),
		s.On("room:launch", locked(func(json.RawMessage, func(any)) { c.onLaunch() })),
	}
}

func ackError(reply func(any), msg string) {
	if reply != nil {
		reply(map[string]any{"success": false, "error": msg})
	}
}

// truncateName caps a name at MaxNameLength characters, counting runes so a
// multi-byte name is never cut mid-character.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) > game.MaxNameLength {
		return string(runes[:game.MaxNameLength])
	}
	return name
}

type playerAddRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (c *RoomController) onPlayerAdd(s *session.Session, data json.RawMessage, reply func(any)) {
	var req playerAddRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	name := truncateName(strings.TrimSpace(req.Name))
	switch {
	case !c.clients.Contains(s):
		ackError(reply, "unknown client")
	case name == "":
		ackError(reply, "invalid name")
	case c.room.Game != nil:
		ackError(reply, "game already started")
	case !c.room.IsNameAvailable(name):
		ackError(reply, "name already used")
	default:
		p := game.NewPlayer(s, name, req.Color)
		c.room.AddPlayer(p)
		s.AddPlayer(p)
		c.nominate()
		if reply != nil {
			reply(map[string]any{"success": true})
		}
	}
}

type playerRef struct {
	Player int64 `json:"player"`
}

// ownedPlayer resolves a player reference to a player this session controls.
func (c *RoomController) ownedPlayer(s *session.Session, id int64) *game.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (c *RoomController) onPlayerRemove(s *session.Session, data json.RawMessage, reply func(any)) {
	var req playerRef
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	p := c.ownedPlayer(s, req.Player)
	if p == nil {
		ackError(reply, "unknown player")
		return
	}
	c.room.RemovePlayer(p)
	s.RemovePlayer(p)
	c.nominate()
	if reply != nil {
		reply(map[string]any{"success": true})
	}
}

func (c *RoomController) onPlayersClear(s *session.Session) {
	for _, p := range append([]*game.Player(nil), s.Players...) {
		c.room.RemovePlayer(p)
	}
	s.ClearPlayers()
	c.nominate()
}

func (c *RoomController) onTalk(s *session.Session, data json.RawMessage, reply func(any)) {
	var content string
	if err := json.Unmarshal(data, &content); err != nil || content == "" {
		ackError(reply, "empty message")
		return
	}
	m := room.NewMessage(s.ID(), content)
	c.chat.Add(m)
	if reply != nil {
		reply(map[string]any{"success": true})
	}
	c.clients.AddEvent("room:talk", m)
}

type colorRequest struct {
	Player int64  `json:"player"`
	Color  string `json:"color"`
}

func (c *RoomController) onColor(s *session.Session, data json.RawMessage, reply func(any)) {
	var req colorRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	p := c.ownedPlayer(s, req.Player)
	if p == nil {
		ackError(reply, "unknown player")
		return
	}
	ok := p.SetColor(req.Color)
	if reply != nil {
		reply(map[string]any{"success": ok, "color": p.Color})
	}
	if ok {
		c.clients.AddEvent("player:color", map[string]any{"player": p.ID, "color": p.Color})
	}
}

type nameRequest struct {
	Player int64  `json:"player"`
	Name   string `json:"name"`
}

func (c *RoomController) onName(s *session.Session, data json.RawMessage, reply func(any)) {
	var req nameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	p := c.ownedPlayer(s, req.Player)
	if p == nil {
		ackError(reply, "unknown player")
		return
	}
	name := truncateName(strings.TrimSpace(req.Name))
	switch {
	case name == "":
		ackError(reply, "invalid name")
	case !c.room.IsNameAvailable(name):
		ackError(reply, "name already used")
	default:
		p.SetName(name)
		if reply != nil {
			reply(map[string]any{"success": true, "name": name})
		}
		c.clients.AddEvent("player:name", map[string]any{"player": p.ID, "name": name})
	}
}

func (c *RoomController) onReady(s *session.Session, data json.RawMessage, reply func(any)) {
	var req playerRef
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	if c.room.Game != nil {
		ackError(reply, "game already started")
		return
	}
	p := c.ownedPlayer(s, req.Player)
	if p == nil {
		ackError(reply, "unknown player")
		return
	}
	p.ToggleReady()
	// Any readiness change invalidates a running countdown.
	c.cancelLaunch()
	if reply != nil {
		reply(map[string]any{"success": true, "ready": p.Ready})
	}
	c.clients.AddEvent("player:ready", map[string]any{"player": p.ID, "ready": p.Ready})
}

// onLaunch toggles the start countdown.
func (c *RoomController) onLaunch() {
	if c.room.Game != nil {
		return
	}
	if c.launchTimer != nil {
		c.cancelLaunch()
		return
	}
	if !c.room.IsReady() {
		return
	}
	c.launchTimer = time.AfterFunc(launchCountdown, func() {
		c.room.Mu.Lock()
		defer c.room.Mu.Unlock()
		if c.launchTimer == nil || c.room.Game != nil {
			return
		}
		c.launchTimer = nil
		c.room.NewGame()
	})
	c.clients.AddEvent("room:launch:start", nil)
}

func (c *RoomController) cancelLaunch() {
	if c.launchTimer == nil {
		return
	}
	c.launchTimer.Stop()
	c.launchTimer = nil
	c.clients.AddEvent("room:launch:cancel", nil)
}

func (c *RoomController) onGameNew(g *game.Game) {
	log.Printf("🎮 room %q: starting game with %d players", c.room.Name, len(g.Avatars))
	c.clients.AddEvent("room:game:start", nil)
	c.gameCtl = NewGameController(c.room, g)
	g.OnEnd.Subscribe(func(struct{}) { c.onGameEnd() })
	for _, s := range c.clients.Sessions() {
		c.gameCtl.Attach(s)
	}
}

func (c *RoomController) onGameEnd() {
	log.Printf("🏁 room %q: game over", c.room.Name)
	c.gameCtl = nil
	c.room.CloseGame()
	c.clients.AddEvent("room:game:end", nil)
}

type openRequest struct {
	Open bool `json:"open"`
}

func (c *RoomController) onConfigOpen(data json.RawMessage, reply func(any)) {
	var req openRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	c.room.Config.SetOpen(req.Open)
	if reply != nil {
		reply(map[string]any{
			"success":  true,
			"open":     c.room.Config.Open,
			"password": c.room.Config.Password,
		})
	}
	c.clients.AddEvent("room:config:open", map[string]any{"open": c.room.Config.Open})
}

type maxScoreRequest struct {
	MaxScore int `json:"maxScore"`
}

func (c *RoomController) onConfigMaxScore(data json.RawMessage, reply func(any)) {
	var req maxScoreRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	c.room.Config.SetMaxScore(req.MaxScore)
	if reply != nil {
		reply(map[string]any{"success": true, "maxScore": c.room.Config.MaxScore})
	}
	c.clients.AddEvent("room:config:max-score", map[string]any{"maxScore": c.room.Config.MaxScore})
}

type variableRequest struct {
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

func (c *RoomController) onConfigVariable(data json.RawMessage, reply func(any)) {
	var req variableRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	ok := c.room.Config.SetVariable(req.Variable, req.Value)
	if reply != nil {
		reply(map[string]any{"success": ok})
	}
	if ok {
		c.clients.AddEvent("room:config:variable", map[string]any{
			"variable": req.Variable,
			"value":    req.Value,
		})
	}
}

type bonusRequest struct {
	Bonus   string `json:"bonus"`
	Enabled bool   `json:"enabled"`
}

func (c *RoomController) onConfigBonus(data json.RawMessage, reply func(any)) {
	var req bonusRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ackError(reply, "invalid request")
		return
	}
	ok := c.room.Config.SetBonus(req.Bonus, req.Enabled)
	if reply != nil {
		reply(map[string]any{"success": ok})
	}
	if ok {
		c.clients.AddEvent("room:config:bonus", map[string]any{
			"bonus":   req.Bonus,
			"enabled": req.Enabled,
		})
	}
}
