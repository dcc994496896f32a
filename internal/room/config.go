package room

import (
	"math/rand"
	"strings"

	"trail-arena/internal/game"
)

const passwordLength = 4

// Config is a room's settings: visibility, score target, bonus toggles and
// tuning variables.
type Config struct {
	room *Room

	Open     bool
	Password string
	// MaxScore is the custom score target; 0 derives it from the roster.
	MaxScore  int
	BonusRate float64
	Bonuses   map[game.BonusKind]bool

	OnOpen game.Signal[bool]
}

func newConfig(r *Room) *Config {
	bonuses := make(map[game.BonusKind]bool, len(game.AllBonusKinds))
	for _, kind := range game.AllBonusKinds {
		bonuses[kind] = true
	}
	return &Config{
		room:    r,
		Open:    true,
		Bonuses: bonuses,
	}
}

// SetOpen toggles public visibility. Closing a room mints a fresh password.
func (c *Config) SetOpen(open bool) {
	if c.Open == open {
		return
	}
	c.Open = open
	if !open {
		c.Password = generatePassword()
	}
	c.OnOpen.Emit(open)
}

// generatePassword returns four digits from 1 to 9.
func generatePassword() string {
	var b strings.Builder
	for i := 0; i < passwordLength; i++ {
		b.WriteByte(byte('1' + rand.Intn(9)))
	}
	return b.String()
}

// Allow reports whether a join with the given password may proceed.
func (c *Config) Allow(password string) bool {
	return c.Open || password == c.Password
}

// SetMaxScore overrides the score target; 0 restores the automatic one.
func (c *Config) SetMaxScore(score int) {
	if score < 0 {
		score = 0
	}
	c.MaxScore = score
}

// GetMaxScore returns the effective score target: the custom value, or ten
// points per opponent.
func (c *Config) GetMaxScore() int {
	if c.MaxScore > 0 {
		return c.MaxScore
	}
	score := (len(c.room.Players) - 1) * 10
	if score < 1 {
		score = 1
	}
	return score
}

// SetVariable tunes a named game variable. Only bonusRate exists today.
func (c *Config) SetVariable(name string, value float64) bool {
	if name != "bonusRate" {
		return false
	}
	if value < -1 || value > 1 {
		return false
	}
	c.BonusRate = value
	return true
}

// SetBonus toggles one bonus kind by wire name.
func (c *Config) SetBonus(name string, enabled bool) bool {
	kind, ok := game.KindByName(name)
	if !ok {
		return false
	}
	c.Bonuses[kind] = enabled
	return true
}

// EnabledBonuses returns the enabled kinds, in wire order.
func (c *Config) EnabledBonuses() []game.BonusKind {
	var kinds []game.BonusKind
	for _, kind := range game.AllBonusKinds {
		if c.Bonuses[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// ConfigInfo is the wire form of a room config.
type ConfigInfo struct {
	MaxScore  int                `json:"maxScore"`
	Variables map[string]float64 `json:"variables"`
	Bonuses   map[string]bool    `json:"bonuses"`
	Open      bool               `json:"open"`
	Password  string             `json:"password"`
}

// Serialize returns the wire form of the config.
func (c *Config) Serialize() ConfigInfo {
	bonuses := make(map[string]bool, len(c.Bonuses))
	for kind, enabled := range c.Bonuses {
		bonuses[kind.String()] = enabled
	}
	return ConfigInfo{
		MaxScore:  c.MaxScore,
		Variables: map[string]float64{"bonusRate": c.BonusRate},
		Bonuses:   bonuses,
		Open:      c.Open,
		Password:  c.Password,
	}
}
