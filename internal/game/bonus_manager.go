package game

import (
	"math/rand"
	"time"

	"trail-arena/internal/game/world"
)

const (
	// bonusCap limits how many bonuses sit on the field at once.
	bonusCap = 20
	// bonusPoppingTime is the base delay between bonus spawns.
	bonusPoppingTime = 3000 * time.Millisecond
	bonusPopMargin   = 0.01
)

// BonusManager spawns bonuses on a timer and tracks them in its own
// single-island world, separate from the trail world so pickups never
// collide with trails.
type BonusManager struct {
	game    *Game
	world   *world.World
	kinds   []BonusKind
	rate    float64
	bonuses []*Bonus
	timer   *time.Timer
	nextID  int64

	OnPop   Signal[*Bonus]
	OnClear Signal[*Bonus]
}

func newBonusManager(game *Game, kinds []BonusKind, rate float64) *BonusManager {
	return &BonusManager{
		game:  game,
		world: world.New(game.Size, 1),
		kinds: kinds,
		rate:  rate,
	}
}

// Start activates the bonus world and schedules the first spawn. Nothing is
// scheduled when no bonus kinds are enabled.
func (m *BonusManager) Start() {
	m.Clear()
	m.world.Activate()
	if len(m.kinds) > 0 {
		m.schedule()
	}
}

// Stop cancels the spawn timer and removes every bonus from the field.
func (m *BonusManager) Stop() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.Clear()
}

// Clear removes every bonus from the field without announcing it.
func (m *BonusManager) Clear() {
	m.world.Clear()
	for _, bonus := range m.bonuses {
		bonus.Clear()
	}
	m.bonuses = m.bonuses[:0]
}

// SetSize rebuilds the bonus world after the field was resized.
func (m *BonusManager) SetSize() {
	m.world.Clear()
	m.world = world.New(m.game.Size, 1)
}

func (m *BonusManager) schedule() {
	m.timer = time.AfterFunc(m.randomPoppingTime(), m.onPoppingTimer)
}

// randomPoppingTime derives the next spawn delay from the configured bonus
// rate: rate 1 halves the base delay, rate -1 doubles it, then the result is
// stretched by a random factor in [1, 2).
func (m *BonusManager) randomPoppingTime() time.Duration {
	base := float64(bonusPoppingTime)
	adjusted := base - (base/2)*m.rate
	return time.Duration(adjusted * (1 + rand.Float64()))
}

func (m *BonusManager) onPoppingTimer() {
	m.game.mu.Lock()
	defer m.game.mu.Unlock()
	if m.timer == nil {
		return
	}
	m.popBonus()
}

// popBonus spawns one bonus, picked by weighted probability over the enabled
// kinds, and reschedules itself.
func (m *BonusManager) popBonus() {
	m.schedule()
	if len(m.bonuses) >= bonusCap {
		return
	}

	type slot struct {
		cumulative float64
		bonus      *Bonus
	}
	var pot []slot
	total := 0.0
	for _, kind := range m.kinds {
		bonus := NewBonus(kind)
		probability := bonus.GetProbability(m.game)
		if probability <= 0 {
			continue
		}
		total += probability
		pot = append(pot, slot{cumulative: total, bonus: bonus})
	}
	if len(pot) == 0 {
		return
	}

	pick := rand.Float64() * total
	for _, s := range pot {
		if pick <= s.cumulative {
			x, y := m.randomPosition(BonusRadius, bonusPopMargin)
			s.bonus.Body.X = x
			s.bonus.Body.Y = y
			m.add(s.bonus)
			return
		}
	}
}

// randomPosition samples a spot clear of trails in the game world and clear
// of other bonuses in the bonus world. Gives up after 100 attempts and
// returns the last sample.
func (m *BonusManager) randomPosition(radius, border float64) (float64, float64) {
	margin := radius + border*m.game.World.Size
	probe := world.NewBody(m.game.World.RandomPoint(margin), m.game.World.RandomPoint(margin), margin)

	for attempts := 0; attempts < 100 && !(m.game.World.TestBody(probe) && m.world.TestBody(probe)); attempts++ {
		probe.X = m.game.World.RandomPoint(margin)
		probe.Y = m.game.World.RandomPoint(margin)
	}
	return probe.X, probe.Y
}

func (m *BonusManager) add(bonus *Bonus) {
	bonus.ID = m.nextID
	m.nextID++
	m.bonuses = append(m.bonuses, bonus)
	m.world.AddBody(bonus.Body)
	m.OnPop.Emit(bonus)
}

func (m *BonusManager) remove(bonus *Bonus) bool {
	for i, b := range m.bonuses {
		if b == bonus {
			m.bonuses = append(m.bonuses[:i], m.bonuses[i+1:]...)
			bonus.Clear()
			m.world.RemoveBody(bonus.Body)
			m.OnClear.Emit(bonus)
			return true
		}
	}
	return false
}

// TestCatch checks the avatar head against the bonus world and applies any
// bonus it overlaps.
func (m *BonusManager) TestCatch(avatar *Avatar) {
	body := m.world.GetBody(avatar.Body)
	if body == nil {
		return
	}
	bonus, ok := body.Data.(*Bonus)
	if !ok {
		return
	}
	if m.remove(bonus) {
		bonus.ApplyTo(avatar, m.game)
	}
}

// Bonuses returns the bonuses currently on the field.
func (m *BonusManager) Bonuses() []*Bonus {
	return m.bonuses
}
