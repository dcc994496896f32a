package game

import (
	"fmt"
	"math/rand"
	"regexp"
)

// MaxNameLength caps player and room names.
const MaxNameLength = 25

var colorPattern = regexp.MustCompile(`^#([a-fA-F0-9]{2})([a-fA-F0-9]{2})([a-fA-F0-9]{2})$`)

// Client is the connection a player belongs to. Implemented by the session
// layer; the game only needs identity and activity.
type Client interface {
	ID() int64
	IsActive() bool
}

// Player is one roster entry in a room. A player owns at most one avatar,
// created lazily when a game starts.
type Player struct {
	ID     int64
	Name   string
	Color  string
	Ready  bool
	Client Client
	Avatar *Avatar
}

// NewPlayer creates a player. An invalid or missing color is replaced with a
// random bright one.
func NewPlayer(client Client, name, color string) *Player {
	if !ValidateColor(color, true) {
		color = RandomColor()
	}
	return &Player{
		Client: client,
		Name:   name,
		Color:  color,
	}
}

// SetName renames the player. Uniqueness is the room's concern.
func (p *Player) SetName(name string) {
	p.Name = name
}

// SetColor updates the color if it passes the brightness check.
func (p *Player) SetColor(color string) bool {
	if !ValidateColor(color, true) {
		return false
	}
	p.Color = color
	return true
}

// ToggleReady flips the ready flag.
func (p *Player) ToggleReady() {
	p.Ready = !p.Ready
}

// GetAvatar returns the player's avatar, creating it on first use.
func (p *Player) GetAvatar() *Avatar {
	if p.Avatar == nil {
		p.Avatar = NewAvatar(p)
	}
	return p.Avatar
}

// Reset destroys the avatar and clears readiness, after a game ends.
func (p *Player) Reset() {
	if p.Avatar != nil {
		p.Avatar.Destroy()
		p.Avatar = nil
	}
	p.Ready = false
}

// PlayerInfo is the wire form of a player.
type PlayerInfo struct {
	Client int64  `json:"client"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Ready  bool   `json:"ready"`
	Active bool   `json:"active"`
}

// Serialize returns the wire form of the player.
func (p *Player) Serialize() PlayerInfo {
	info := PlayerInfo{
		ID:    p.ID,
		Name:  p.Name,
		Color: p.Color,
		Ready: p.Ready,
	}
	if p.Client != nil {
		info.Client = p.Client.ID()
		info.Active = p.Client.IsActive()
	}
	return info
}

// ValidateColor checks the #rrggbb format; with yiq set it additionally
// requires the color to be readable against the dark field:
// (0.4r + 0.5g + 0.3b)/255 > 0.3.
func ValidateColor(color string, yiq bool) bool {
	m := colorPattern.FindStringSubmatch(color)
	if m == nil {
		return false
	}
	if !yiq {
		return true
	}
	r := hexByte(m[1])
	g := hexByte(m[2])
	b := hexByte(m[3])
	return (0.4*r+0.5*g+0.3*b)/255 > 0.3
}

// RandomColor samples colors until one passes the brightness check.
func RandomColor() string {
	for {
		color := fmt.Sprintf("#%02x%02x%02x", 1+rand.Intn(255), 1+rand.Intn(255), 1+rand.Intn(255))
		if ValidateColor(color, true) {
			return color
		}
	}
}

func hexByte(s string) float64 {
	var v int
	fmt.Sscanf(s, "%x", &v)
	return float64(v)
}
