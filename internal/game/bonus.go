package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"trail-arena/internal/game/world"
)

// BonusRadius is the pickup radius of every bonus body.
const BonusRadius = 3.0

// Affect selects who a bonus applies to when caught.
type Affect int

const (
	AffectSelf Affect = iota
	AffectEnemy
	AffectAll
	AffectGame
)

// BonusKind enumerates the bonus types that can spawn on the field.
type BonusKind int

const (
	BonusSelfSmall BonusKind = iota
	BonusSelfSlow
	BonusSelfFast
	BonusSelfMaster
	BonusEnemySlow
	BonusEnemyFast
	BonusEnemyBig
	BonusEnemyInverse
	BonusEnemyStraightAngle
	BonusGameBorderless
	BonusGameClear
	BonusAllColor
)

// AllBonusKinds lists every spawnable kind, in wire order.
var AllBonusKinds = []BonusKind{
	BonusSelfSmall,
	BonusSelfSlow,
	BonusSelfFast,
	BonusSelfMaster,
	BonusEnemySlow,
	BonusEnemyFast,
	BonusEnemyBig,
	BonusEnemyInverse,
	BonusEnemyStraightAngle,
	BonusGameBorderless,
	BonusGameClear,
	BonusAllColor,
}

type bonusTraits struct {
	name        string
	affect      Affect
	duration    time.Duration
	probability float64
}

var bonusTraitsByKind = map[BonusKind]bonusTraits{
	BonusSelfSmall:          {"BonusSelfSmall", AffectSelf, 7500 * time.Millisecond, 1},
	BonusSelfSlow:           {"BonusSelfSlow", AffectSelf, 4000 * time.Millisecond, 1},
	BonusSelfFast:           {"BonusSelfFast", AffectSelf, 4000 * time.Millisecond, 1},
	BonusSelfMaster:         {"BonusSelfMaster", AffectSelf, 2000 * time.Millisecond, 0.1},
	BonusEnemySlow:          {"BonusEnemySlow", AffectEnemy, 6000 * time.Millisecond, 1},
	BonusEnemyFast:          {"BonusEnemyFast", AffectEnemy, 6000 * time.Millisecond, 1},
	BonusEnemyBig:           {"BonusEnemyBig", AffectEnemy, 7500 * time.Millisecond, 1},
	BonusEnemyInverse:       {"BonusEnemyInverse", AffectEnemy, 5000 * time.Millisecond, 1},
	BonusEnemyStraightAngle: {"BonusEnemyStraightAngle", AffectEnemy, 5000 * time.Millisecond, 1},
	BonusGameBorderless:     {"BonusGameBorderless", AffectGame, 8000 * time.Millisecond, 1},
	BonusGameClear:          {"BonusGameClear", AffectGame, 0, 1},
	BonusAllColor:           {"BonusAllColor", AffectAll, 8000 * time.Millisecond, 0.3},
}

// String returns the wire type name of the kind.
func (k BonusKind) String() string { return bonusTraitsByKind[k].name }

// KindByName resolves a wire type name back to its kind.
func KindByName(name string) (BonusKind, bool) {
	for kind, traits := range bonusTraitsByKind {
		if traits.name == name {
			return kind, true
		}
	}
	return 0, false
}

// Effect is one property delta carried by a bonus. Numeric properties fold
// additively in the stack; Color, DirectionInLoop and AngularVelocityBase
// replace.
type Effect struct {
	Prop  Property
	Value float64
	Color string
}

// Bonus is one spawned pickup. Its effects are fixed at spawn time; catching
// it pushes them onto the targets' stacks for the bonus duration.
type Bonus struct {
	ID   int64
	Kind BonusKind
	Body *world.Body

	effects []Effect
	targets []*Avatar
	game    *Game
	mu      *sync.Mutex
	timer   *time.Timer
}

// NewBonus creates an unplaced bonus of the given kind, sampling any
// per-spawn randomness in its effects.
func NewBonus(kind BonusKind) *Bonus {
	b := &Bonus{Kind: kind, effects: rollEffects(kind)}
	b.Body = world.NewBody(0, 0, BonusRadius)
	b.Body.Data = b
	return b
}

func rollEffects(kind BonusKind) []Effect {
	switch kind {
	case BonusSelfSmall:
		return []Effect{{Prop: PropRadius, Value: -1}}
	case BonusSelfSlow:
		return []Effect{{Prop: PropVelocity, Value: -DefaultVelocity / 2}}
	case BonusSelfFast:
		return []Effect{{Prop: PropVelocity, Value: DefaultVelocity / 2}}
	case BonusSelfMaster:
		return []Effect{{Prop: PropInvincible, Value: 1}}
	case BonusEnemySlow:
		return []Effect{{Prop: PropVelocity, Value: -DefaultVelocity * 3 / 4}}
	case BonusEnemyFast:
		return []Effect{{Prop: PropVelocity, Value: DefaultVelocity * 3 / 4}}
	case BonusEnemyBig:
		return []Effect{{Prop: PropRadius, Value: 1}}
	case BonusEnemyInverse:
		return []Effect{{Prop: PropInverse, Value: 1}}
	case BonusEnemyStraightAngle:
		return []Effect{
			{Prop: PropDirectionInLoop, Value: 0},
			{Prop: PropAngularVelocityBase, Value: math.Pi / 2},
		}
	case BonusGameBorderless:
		return []Effect{{Prop: PropBorderless, Value: 1}}
	case BonusAllColor:
		return []Effect{{Prop: PropColor, Color: randomBrightColor()}}
	}
	return nil
}

// randomBrightColor samples a color with every channel in [100, 255].
func randomBrightColor() string {
	return fmt.Sprintf("#%02x%02x%02x", 100+rand.Intn(156), 100+rand.Intn(156), 100+rand.Intn(156))
}

// Name returns the wire type name of the bonus.
func (b *Bonus) Name() string { return bonusTraitsByKind[b.Kind].name }

// Duration returns how long the bonus effect lasts once caught.
func (b *Bonus) Duration() time.Duration { return bonusTraitsByKind[b.Kind].duration }

// Affect returns who the bonus applies to.
func (b *Bonus) Affect() Affect { return bonusTraitsByKind[b.Kind].affect }

// Effects returns the property deltas carried by this bonus.
func (b *Bonus) Effects() []Effect { return b.effects }

// GetProbability returns the spawn weight of this bonus in the current game
// state. Most kinds carry a fixed weight; field clearing scales down as the
// round thins out.
func (b *Bonus) GetProbability(g *Game) float64 {
	if b.Kind == BonusGameClear {
		return clearProbability(g)
	}
	return bonusTraitsByKind[b.Kind].probability
}

func clearProbability(g *Game) float64 {
	present := 0
	alive := 0
	for _, avatar := range g.Avatars {
		if avatar.Present {
			present++
			if avatar.Alive {
				alive++
			}
		}
	}
	if present == 0 {
		return 0
	}
	ratio := 1 - float64(alive)/float64(present)
	if ratio < 0.5 {
		return 1
	}
	return math.RoundToEven((1-ratio)*10) / 10
}

// ApplyTo resolves the bonus targets relative to the catching avatar and
// pushes the effects onto their stacks. Timed bonuses schedule their own
// expiry; the callback re-locks the game before unwinding.
func (b *Bonus) ApplyTo(avatar *Avatar, g *Game) {
	b.game = g
	b.mu = g.mu
	b.targets = b.targets[:0]

	switch b.Affect() {
	case AffectSelf:
		if avatar.Alive {
			b.targets = append(b.targets, avatar)
		}
	case AffectEnemy:
		for _, other := range g.Avatars {
			if other.Alive && other != avatar {
				b.targets = append(b.targets, other)
			}
		}
	case AffectAll:
		for _, other := range g.Avatars {
			if other.Alive {
				b.targets = append(b.targets, other)
			}
		}
	}

	if d := b.Duration(); d > 0 {
		b.timer = time.AfterFunc(d, b.expire)
	}
	b.on()
}

func (b *Bonus) on() {
	if b.Kind == BonusGameClear {
		b.game.ClearTrails()
		return
	}
	if b.Affect() == AffectGame {
		b.game.BonusStack.Add(b)
		return
	}
	for _, target := range b.targets {
		target.BonusStack.Add(b)
	}
}

func (b *Bonus) off() {
	if b.Affect() == AffectGame {
		if b.Kind != BonusGameClear {
			b.game.BonusStack.Remove(b)
		}
		return
	}
	for _, target := range b.targets {
		target.BonusStack.Remove(b)
	}
}

func (b *Bonus) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer == nil {
		return
	}
	b.timer = nil
	b.off()
}

// Clear cancels the expiry timer without unwinding the effects; the round
// reset that follows wipes the stacks wholesale.
func (b *Bonus) Clear() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
