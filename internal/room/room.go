// Package room holds the lobby-side model: named rooms, their rosters,
// their configuration and the repository that tracks them.
package room

import (
	"strings"
	"sync"

	"trail-arena/internal/game"
)

// Room is one named game room. Mu is the room lock; the controllers, the
// game loop and every timer touching this room serialize on it.
type Room struct {
	Name string
	Mu   sync.Mutex

	Players []*game.Player
	Game    *game.Game
	Config  *Config

	nextPlayerID int64

	OnPlayerJoin  game.Signal[*game.Player]
	OnPlayerLeave game.Signal[*game.Player]
	OnGameNew     game.Signal[*game.Game]
	OnGameEnd     game.Signal[struct{}]
}

// New creates an empty open room.
func New(name string) *Room {
	r := &Room{Name: name}
	r.Config = newConfig(r)
	return r
}

// IsNameAvailable reports whether no player already uses the name,
// case-insensitively.
func (r *Room) IsNameAvailable(name string) bool {
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return false
		}
	}
	return true
}

// AddPlayer assigns the player the next room-local id and announces it.
func (r *Room) AddPlayer(p *game.Player) {
	r.nextPlayerID++
	p.ID = r.nextPlayerID
	r.Players = append(r.Players, p)
	r.OnPlayerJoin.Emit(p)
}

// RemovePlayer drops the player from the roster and announces it.
func (r *Room) RemovePlayer(p *game.Player) bool {
	for i, player := range r.Players {
		if player == p {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			r.OnPlayerLeave.Emit(p)
			return true
		}
	}
	return false
}

// PlayerByID returns the player with the given room-local id, or nil.
func (r *Room) PlayerByID(id int64) *game.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// IsReady reports whether every player toggled ready.
func (r *Room) IsReady() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// NewGame starts a match over the current roster. Returns nil if one is
// already running.
func (r *Room) NewGame() *game.Game {
	if r.Game != nil {
		return nil
	}
	r.Game = game.NewGame(
		r.Name,
		r.Players,
		r.Config.GetMaxScore(),
		r.Config.EnabledBonuses(),
		r.Config.BonusRate,
		&r.Mu,
	)
	r.OnGameNew.Emit(r.Game)
	return r.Game
}

// CloseGame tears the finished match down and resets the roster for the
// next one.
func (r *Room) CloseGame() {
	if r.Game == nil {
		return
	}
	r.Game = nil
	r.OnGameEnd.Emit(struct{}{})
	for _, p := range r.Players {
		p.Reset()
	}
}

// RoomInfo is the full wire form of a room, sent on join.
type RoomInfo struct {
	Name    string            `json:"name"`
	Players []game.PlayerInfo `json:"players"`
	Game    bool              `json:"game"`
	Open    bool              `json:"open"`
	Config  ConfigInfo        `json:"config"`
}

// Serialize returns the full wire form of the room.
func (r *Room) Serialize() RoomInfo {
	players := make([]game.PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.Serialize())
	}
	return RoomInfo{
		Name:    r.Name,
		Players: players,
		Game:    r.Game != nil,
		Open:    r.Config.Open,
		Config:  r.Config.Serialize(),
	}
}

// RoomSummary is the compact wire form of a room, used in lobby listings.
type RoomSummary struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
	Game    bool   `json:"game"`
	Open    bool   `json:"open"`
}

// Summarize returns the compact wire form of the room.
func (r *Room) Summarize() RoomSummary {
	return RoomSummary{
		Name:    r.Name,
		Players: len(r.Players),
		Game:    r.Game != nil,
		Open:    r.Config.Open,
	}
}
