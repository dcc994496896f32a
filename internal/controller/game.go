// Package controller wires sessions to rooms and games: it translates
// inbound socket events into model calls and fans model signals back out as
// wire events.
package controller

import (
	"encoding/json"
	"log"
	"time"

	"trail-arena/internal/game"
	"trail-arena/internal/room"
	"trail-arena/internal/session"
)

// waitingTime bounds how long a fresh game waits for clients to load.
const waitingTime = 30 * time.Second

// GameController fans one running game out to its room's sessions and feeds
// player input back in. All handlers and signal callbacks run under the
// room lock.
type GameController struct {
	room    *room.Room
	game    *game.Game
	clients *session.Group

	waitingTimer *time.Timer

	handlers  map[*session.Session][]*session.Handler
	avatarSub map[*game.Avatar][]func()
	gameSub   []func()
}

// NewGameController hooks a just-created game up and starts the loading
// countdown.
func NewGameController(r *room.Room, g *game.Game) *GameController {
	c := &GameController{
		room:      r,
		game:      g,
		clients:   session.NewGroup(),
		handlers:  make(map[*session.Session][]*session.Handler),
		avatarSub: make(map[*game.Avatar][]func()),
	}
	c.attachGameEvents()
	for _, avatar := range g.Avatars {
		c.attachAvatarEvents(avatar)
	}
	c.waitingTimer = time.AfterFunc(waitingTime, c.onWaitingTimeout)
	return c
}

func (c *GameController) attachGameEvents() {
	g := c.game
	c.gameSub = append(c.gameSub,
		unsub(&g.OnStart, g.OnStart.Subscribe(func(struct{}) {
			c.clients.AddEvent("game:start", nil)
		})),
		unsub(&g.OnStop, g.OnStop.Subscribe(func(struct{}) {
			c.clients.AddEvent("game:stop", nil)
		})),
		unsub(&g.OnRoundNew, g.OnRoundNew.Subscribe(func(struct{}) {
			c.clients.AddEvent("round:new", nil)
		})),
		unsub(&g.OnRoundEnd, g.OnRoundEnd.Subscribe(c.onRoundEnd)),
		unsub(&g.OnBorderless, g.OnBorderless.Subscribe(func(on bool) {
			c.clients.AddEvent("borderless", on)
		})),
		unsub(&g.OnClear, g.OnClear.Subscribe(func(struct{}) {
			c.clients.AddEvent("clear", nil)
		})),
		unsub(&g.OnLeave, g.OnLeave.Subscribe(func(p *game.Player) {
			c.clients.AddEvent("game:leave", map[string]any{"player": p.ID})
		})),
		unsub(&g.OnEnd, g.OnEnd.Subscribe(func(struct{}) { c.onEnd() })),
		unsub(&g.BonusManager.OnPop, g.BonusManager.OnPop.Subscribe(c.onBonusPop)),
		unsub(&g.BonusManager.OnClear, g.BonusManager.OnClear.Subscribe(func(b *game.Bonus) {
			c.clients.AddEvent("bonus:clear", b.ID)
		})),
	)
}

// unsub packages a subscription with its signal so teardown needs no type
// juggling.
func unsub[T any](s *game.Signal[T], sub *game.Subscription[T]) func() {
	return func() { s.Unsubscribe(sub) }
}

func (c *GameController) attachAvatarEvents(a *game.Avatar) {
	c.avatarSub[a] = append(c.avatarSub[a],
		unsub(&a.OnPosition, a.OnPosition.Subscribe(func(a *game.Avatar) {
			c.clients.AddEvent("position", []any{a.ID, session.Compress(a.X), session.Compress(a.Y)})
		})),
		unsub(&a.OnAngle, a.OnAngle.Subscribe(func(a *game.Avatar) {
			c.clients.AddEvent("angle", []any{a.ID, session.Compress(a.Angle)})
		})),
		unsub(&a.OnPoint, a.OnPoint.Subscribe(func(e game.PointEvent) {
			if e.Important {
				c.clients.AddEvent("point", e.Avatar.ID)
			}
		})),
		unsub(&a.OnDie, a.OnDie.Subscribe(func(e game.DieEvent) {
			var killer, old any
			if e.Killer != nil {
				killer = e.Killer.ID
				old = e.Old
			}
			c.clients.AddEvent("die", []any{e.Avatar.ID, killer, old})
		})),
		unsub(&a.OnScore, a.OnScore.Subscribe(func(a *game.Avatar) {
			c.clients.AddEvent("score", []any{a.ID, a.Score})
		})),
		unsub(&a.OnRoundScore, a.OnRoundScore.Subscribe(func(a *game.Avatar) {
			c.clients.AddEvent("score:round", []any{a.ID, a.RoundScore})
		})),
		unsub(&a.OnProperty, a.OnProperty.Subscribe(func(e game.PropertyEvent) {
			c.clients.AddEvent("property", map[string]any{
				"avatar":   e.Avatar.ID,
				"property": e.Prop.String(),
				"value":    e.Value,
			})
		})),
		unsub(&a.BonusStack.OnChange, a.BonusStack.OnChange.Subscribe(func(ch game.StackChange) {
			c.clients.AddEvent("bonus:stack", []any{
				ch.Avatar.ID,
				ch.Method,
				ch.Bonus.ID,
				ch.Bonus.Name(),
				ch.Bonus.Duration().Milliseconds(),
			})
		})),
	)
}

func (c *GameController) onBonusPop(b *game.Bonus) {
	c.clients.AddEvent("bonus:pop", []any{
		b.ID,
		session.Compress(b.Body.X),
		session.Compress(b.Body.Y),
		b.Name(),
	})
}

func (c *GameController) onRoundEnd(winner *game.Avatar) {
	var id any
	if winner != nil {
		id = winner.ID
	}
	c.clients.AddEvent("round:end", map[string]any{"winner": id})
}

// Attach joins a session to the game stream. Caller holds the room lock.
func (c *GameController) Attach(s *session.Session) {
	c.clients.Add(s)
	s.SetInterval(session.FlushInterval)
	s.StartPing()

	var handlers []*session.Handler
	handlers = append(handlers, s.On("ready", func(_ json.RawMessage, _ func(any)) {
		c.room.Mu.Lock()
		defer c.room.Mu.Unlock()
		c.onReady(s)
	}))
	handlers = append(handlers, s.On("player:move", func(data json.RawMessage, _ func(any)) {
		c.room.Mu.Lock()
		defer c.room.Mu.Unlock()
		c.onMove(s, data)
	}))
	c.handlers[s] = handlers

	c.broadcastSpectators()
}

// Detach removes a session and its avatars from the game. Caller holds the
// room lock.
func (c *GameController) Detach(s *session.Session) {
	if !c.clients.Contains(s) {
		return
	}
	c.clients.Remove(s)
	for _, h := range c.handlers[s] {
		s.Off(h)
	}
	delete(c.handlers, s)
	s.SetInterval(0)
	s.StopPing()

	for _, p := range s.Players {
		if p.Avatar != nil {
			c.game.RemoveAvatar(p.Avatar)
		}
	}
	c.broadcastSpectators()
}

func (c *GameController) spectatorCount() int {
	count := 0
	for _, s := range c.clients.Sessions() {
		if len(s.Players) == 0 {
			count++
		}
	}
	return count
}

func (c *GameController) broadcastSpectators() {
	c.clients.AddEvent("game:spectators", c.spectatorCount())
}

// onReady marks a loading client's avatars ready, or snapshots the running
// game for a late spectator.
func (c *GameController) onReady(s *session.Session) {
	if c.game.Started {
		c.attachSpectator(s)
		return
	}
	for _, p := range s.Players {
		if p.Avatar != nil {
			p.Avatar.Ready = true
			c.clients.AddEvent("ready", p.Avatar.ID)
		}
	}
	c.checkReady()
}

func (c *GameController) checkReady() {
	if !c.game.IsReady() {
		return
	}
	if c.waitingTimer != nil {
		c.waitingTimer.Stop()
		c.waitingTimer = nil
	}
	c.game.NewRound()
}

// onWaitingTimeout drops clients whose avatars never finished loading, so
// one stuck download cannot hold the whole room.
func (c *GameController) onWaitingTimeout() {
	c.room.Mu.Lock()
	defer c.room.Mu.Unlock()
	if c.waitingTimer == nil || c.game.IsReady() {
		return
	}
	c.waitingTimer = nil

	var stuck []*session.Session
	for _, s := range c.clients.Sessions() {
		for _, p := range s.Players {
			if p.Avatar != nil && !p.Avatar.Ready {
				stuck = append(stuck, s)
				break
			}
		}
	}
	for _, s := range stuck {
		log.Printf("⏱️ room %s: dropping session %d, still loading after %s", c.room.Name, s.ID(), waitingTime)
		c.Detach(s)
	}
	c.checkReady()
}

// attachSpectator sends a late joiner the full game state as one batch.
func (c *GameController) attachSpectator(s *session.Session) {
	s.AddEvents(c.spectatorEvents())
}

// spectatorEvents snapshots the running game: the spectate header, every
// avatar's position and properties, then either the live bonuses or the
// last round result.
func (c *GameController) spectatorEvents() []session.Event {
	events := []session.Event{{
		Name: "spectate",
		Data: map[string]any{
			"inRound":  c.game.InRound,
			"rendered": c.game.Rendered(),
			"maxScore": c.game.MaxScore,
		},
	}}

	for _, a := range c.game.Avatars {
		events = append(events, session.Event{
			Name: "position",
			Data: []any{a.ID, session.Compress(a.X), session.Compress(a.Y)},
		})
		props := []struct {
			prop  string
			value any
		}{
			{"angle", session.Compress(a.Angle)},
			{"radius", a.Radius()},
			{"color", a.Color},
			{"printing", a.Printing},
			{"score", a.Score},
		}
		for _, p := range props {
			events = append(events, session.Event{
				Name: "property",
				Data: map[string]any{"avatar": a.ID, "property": p.prop, "value": p.value},
			})
		}
		if !a.Alive {
			events = append(events, session.Event{
				Name: "die",
				Data: map[string]any{"avatar": a.ID},
			})
		}
	}

	if c.game.InRound {
		for _, b := range c.game.BonusManager.Bonuses() {
			events = append(events, session.Event{
				Name: "bonus:pop",
				Data: []any{b.ID, session.Compress(b.Body.X), session.Compress(b.Body.Y), b.Name()},
			})
		}
	} else {
		var id any
		if c.game.RoundWinner != nil {
			id = c.game.RoundWinner.ID
		}
		events = append(events, session.Event{
			Name: "round:end",
			Data: map[string]any{"winner": id},
		})
	}

	return append(events, session.Event{Name: "game:spectators", Data: c.spectatorCount()})
}

type moveRequest struct {
	Avatar int64   `json:"avatar"`
	Move   float64 `json:"move"`
}

func (c *GameController) onMove(s *session.Session, data json.RawMessage) {
	var req moveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	avatar := c.game.AvatarByID(req.Avatar)
	if avatar == nil || !c.ownsAvatar(s, avatar) {
		return
	}
	factor := 0.0
	if req.Move > 0 {
		factor = 1
	} else if req.Move < 0 {
		factor = -1
	}
	avatar.UpdateAngularVelocity(factor)
}

func (c *GameController) ownsAvatar(s *session.Session, a *game.Avatar) bool {
	for _, p := range s.Players {
		if p.Avatar == a {
			return true
		}
	}
	return false
}

// onEnd tears the controller down once the game reports it is over.
func (c *GameController) onEnd() {
	c.clients.AddEvent("end", nil)
	c.unload()
}

func (c *GameController) unload() {
	if c.waitingTimer != nil {
		c.waitingTimer.Stop()
		c.waitingTimer = nil
	}
	for _, cancel := range c.gameSub {
		cancel()
	}
	c.gameSub = nil
	for _, cancels := range c.avatarSub {
		for _, cancel := range cancels {
			cancel()
		}
	}
	c.avatarSub = make(map[*game.Avatar][]func())
	for s, handlers := range c.handlers {
		for _, h := range handlers {
			s.Off(h)
		}
		s.SetInterval(0)
		s.StopPing()
		delete(c.handlers, s)
	}
	c.clients = session.NewGroup()
}
