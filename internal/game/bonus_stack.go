package game

import "math"

// StackChange reports a bonus entering or leaving an avatar's stack.
type StackChange struct {
	Avatar *Avatar
	Method string
	Bonus  *Bonus
}

// BonusStack holds the bonuses currently affecting one avatar and resolves
// their combined value per property. Numeric effects fold additively onto
// the property default; color, steering mode and turn rate replace.
type BonusStack struct {
	avatar  *Avatar
	bonuses []*Bonus

	OnChange Signal[StackChange]
}

func newBonusStack(avatar *Avatar) *BonusStack {
	return &BonusStack{avatar: avatar}
}

// Add pushes a bonus onto the stack and reapplies the touched properties.
func (s *BonusStack) Add(bonus *Bonus) {
	if !s.contains(bonus) {
		s.bonuses = append(s.bonuses, bonus)
		s.resolve(bonus)
	}
	s.OnChange.Emit(StackChange{Avatar: s.avatar, Method: "add", Bonus: bonus})
}

// Remove pops a bonus off the stack and reapplies the touched properties.
func (s *BonusStack) Remove(bonus *Bonus) {
	if s.drop(bonus) {
		s.resolve(bonus)
	}
	s.OnChange.Emit(StackChange{Avatar: s.avatar, Method: "remove", Bonus: bonus})
}

// Clear drops every bonus, cancelling pending expiries, without reapplying
// anything. The round reset that follows restores the defaults itself.
func (s *BonusStack) Clear() {
	for _, bonus := range s.bonuses {
		bonus.Clear()
	}
	s.bonuses = s.bonuses[:0]
}

func (s *BonusStack) contains(bonus *Bonus) bool {
	for _, b := range s.bonuses {
		if b == bonus {
			return true
		}
	}
	return false
}

func (s *BonusStack) drop(bonus *Bonus) bool {
	for i, b := range s.bonuses {
		if b == bonus {
			s.bonuses = append(s.bonuses[:i], s.bonuses[i+1:]...)
			return true
		}
	}
	return false
}

// resolve recomputes every property the changed bonus touches, folding the
// remaining stack over the property defaults.
func (s *BonusStack) resolve(changed *Bonus) {
	props := make(map[Property]float64)
	colors := make(map[Property]string)
	for _, e := range changed.Effects() {
		props[e.Prop] = s.defaultValue(e.Prop)
		if e.Prop == PropColor {
			colors[e.Prop] = s.avatar.Player.Color
		}
	}
	for _, b := range s.bonuses {
		for _, e := range b.Effects() {
			if _, tracked := props[e.Prop]; !tracked {
				continue
			}
			switch e.Prop {
			case PropColor:
				colors[e.Prop] = e.Color
			case PropDirectionInLoop, PropAngularVelocityBase:
				props[e.Prop] = e.Value
			default:
				props[e.Prop] += e.Value
			}
		}
	}
	for prop, value := range props {
		s.apply(prop, value, colors[prop])
	}
}

func (s *BonusStack) defaultValue(prop Property) float64 {
	switch prop {
	case PropPrinting:
		return 1
	case PropVelocity:
		return DefaultVelocity
	case PropDirectionInLoop:
		return 1
	case PropAngularVelocityBase:
		return DefaultAngularVelocityBase
	}
	return 0
}

func (s *BonusStack) apply(prop Property, value float64, color string) {
	a := s.avatar
	switch prop {
	case PropRadius:
		a.SetRadius(DefaultRadius * math.Pow(2, value))
	case PropVelocity:
		a.SetVelocity(value)
	case PropInverse:
		a.SetInverse(math.Mod(value, 2) != 0)
	case PropInvincible:
		a.SetInvincible(value > 0)
	case PropPrinting:
		if value > 0 {
			a.PrintManager.Start()
		} else {
			a.PrintManager.Stop()
		}
	case PropColor:
		a.SetColor(color)
	case PropDirectionInLoop:
		a.directionInLoop = value != 0
	case PropAngularVelocityBase:
		a.angularVelocityBase = value
	}
}

// GameBonusStack holds the bonuses affecting the game itself.
type GameBonusStack struct {
	game    *Game
	bonuses []*Bonus
}

func newGameBonusStack(game *Game) *GameBonusStack {
	return &GameBonusStack{game: game}
}

// Add pushes a game-wide bonus and reapplies the touched properties.
func (s *GameBonusStack) Add(bonus *Bonus) {
	if s.contains(bonus) {
		return
	}
	s.bonuses = append(s.bonuses, bonus)
	s.resolve(bonus)
}

// Remove pops a game-wide bonus and reapplies the touched properties.
func (s *GameBonusStack) Remove(bonus *Bonus) {
	if !s.drop(bonus) {
		return
	}
	s.resolve(bonus)
}

// Clear drops every game-wide bonus, cancelling pending expiries.
func (s *GameBonusStack) Clear() {
	for _, bonus := range s.bonuses {
		bonus.Clear()
	}
	s.bonuses = s.bonuses[:0]
}

func (s *GameBonusStack) contains(bonus *Bonus) bool {
	for _, b := range s.bonuses {
		if b == bonus {
			return true
		}
	}
	return false
}

func (s *GameBonusStack) drop(bonus *Bonus) bool {
	for i, b := range s.bonuses {
		if b == bonus {
			s.bonuses = append(s.bonuses[:i], s.bonuses[i+1:]...)
			return true
		}
	}
	return false
}

func (s *GameBonusStack) resolve(changed *Bonus) {
	props := make(map[Property]float64)
	for _, e := range changed.Effects() {
		props[e.Prop] = 0
	}
	for _, b := range s.bonuses {
		for _, e := range b.Effects() {
			if _, tracked := props[e.Prop]; tracked {
				props[e.Prop] += e.Value
			}
		}
	}
	for prop, value := range props {
		if prop == PropBorderless {
			s.game.SetBorderless(value != 0)
		}
	}
}
