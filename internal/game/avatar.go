package game

import (
	"math"

	"trail-arena/internal/game/world"
)

// Avatar movement defaults. Bonuses scale these; the setters clamp against
// them so no effect can stop or shrink an avatar entirely.
const (
	DefaultVelocity            = 16.0
	DefaultAngularVelocityBase = 2.8 / 1000
	DefaultRadius              = 0.6
	DefaultTrailLatency        = 3
)

// Property identifies one mutable avatar or game property touched by
// bonuses and reported to clients.
type Property int

const (
	PropVelocity Property = iota
	PropRadius
	PropInvincible
	PropInverse
	PropColor
	PropPrinting
	PropAngle
	PropScore
	PropDirectionInLoop
	PropAngularVelocityBase
	PropBorderless
)

// String returns the wire name of the property.
func (p Property) String() string {
	switch p {
	case PropVelocity:
		return "velocity"
	case PropRadius:
		return "radius"
	case PropInvincible:
		return "invincible"
	case PropInverse:
		return "inverse"
	case PropColor:
		return "color"
	case PropPrinting:
		return "printing"
	case PropAngle:
		return "angle"
	case PropScore:
		return "score"
	case PropDirectionInLoop:
		return "directionInLoop"
	case PropAngularVelocityBase:
		return "angularVelocityBase"
	case PropBorderless:
		return "borderless"
	}
	return "unknown"
}

// PropertyEvent reports one avatar property mutation.
type PropertyEvent struct {
	Avatar *Avatar
	Prop   Property
	Value  any
}

// PointEvent reports one printed trail point.
type PointEvent struct {
	Avatar    *Avatar
	X, Y      float64
	Important bool
}

// DieEvent reports an avatar death. Killer is nil for wall deaths; Old is
// meaningful only when Killer is set and reports whether the lethal trail
// point was stale.
type DieEvent struct {
	Avatar *Avatar
	Killer *Avatar
	Old    bool
}

// Avatar is a player's in-game character: a moving head that prints a
// lethal trail. All mutation goes through setters so every observable
// change is mirrored into the collision body and emitted exactly once.
type Avatar struct {
	ID     int64
	Name   string
	Color  string
	Player *Player

	X, Y            float64
	Angle           float64
	VelocityX       float64
	VelocityY       float64
	AngularVelocity float64

	Alive      bool
	Printing   bool
	Score      int
	RoundScore int
	Ready      bool
	Present    bool

	BodyCount int
	Body      *world.Body

	Trail        *Trail
	BonusStack   *BonusStack
	PrintManager *PrintManager

	velocity            float64
	radius              float64
	angularVelocityBase float64
	inverse             bool
	invincible          bool
	directionInLoop     bool
	trailLatency        int

	OnPosition   Signal[*Avatar]
	OnAngle      Signal[*Avatar]
	OnProperty   Signal[PropertyEvent]
	OnPoint      Signal[PointEvent]
	OnScore      Signal[*Avatar]
	OnRoundScore Signal[*Avatar]
	OnDie        Signal[DieEvent]
}

// NewAvatar creates an avatar for a player. The avatar inherits the
// player's id and color.
func NewAvatar(player *Player) *Avatar {
	a := &Avatar{
		ID:                  player.ID,
		Name:                player.Name,
		Color:               player.Color,
		Player:              player,
		Alive:               true,
		Present:             true,
		velocity:            DefaultVelocity,
		radius:              DefaultRadius,
		angularVelocityBase: DefaultAngularVelocityBase,
		directionInLoop:     true,
		trailLatency:        DefaultTrailLatency,
	}
	a.Body = world.NewTrailBody(a.X, a.Y, a.radius, a.ID, a.BodyCount, a.trailLatency, a)
	a.BodyCount++
	a.Trail = newTrail(a)
	a.BonusStack = newBonusStack(a)
	a.PrintManager = newPrintManager(a)
	a.updateVelocities()
	return a
}

// Velocity returns the current speed in world units per second.
func (a *Avatar) Velocity() float64 { return a.velocity }

// Radius returns the current collision radius.
func (a *Avatar) Radius() float64 { return a.radius }

// Invincible reports whether trail collisions are currently ignored.
func (a *Avatar) Invincible() bool { return a.invincible }

// Inverse reports whether steering is mirrored.
func (a *Avatar) Inverse() bool { return a.inverse }

// DirectionInLoop reports whether steering turns continuously; when false
// each steer input is one discrete right-angle turn.
func (a *Avatar) DirectionInLoop() bool { return a.directionInLoop }

// AngularVelocityBase returns the turning rate applied per steer input.
func (a *Avatar) AngularVelocityBase() float64 { return a.angularVelocityBase }

// Update advances the avatar by step milliseconds, printing a trail point
// whenever the head has moved more than one radius from the last one.
func (a *Avatar) Update(step float64) {
	if !a.Alive {
		return
	}
	a.updateAngle(step)
	a.updatePosition(step)

	if a.Printing && a.isTimeToDraw() {
		a.AddPoint(a.X, a.Y, false)
	}
}

func (a *Avatar) isTimeToDraw() bool {
	last, ok := a.Trail.LastPoint()
	if !ok {
		return true
	}
	return distance(last.X, last.Y, a.X, a.Y) > a.radius
}

// SetPosition moves the head, refreshing the collision body and its trail
// sequence number so the self-collision window tracks the newest points.
func (a *Avatar) SetPosition(x, y float64) {
	a.X = x
	a.Y = y
	a.Body.X = x
	a.Body.Y = y
	a.Body.Num = a.BodyCount
	a.OnPosition.Emit(a)
}

// SetAngle rotates the head and re-derives the velocity components.
func (a *Avatar) SetAngle(angle float64) {
	if a.Angle == angle {
		return
	}
	a.Angle = angle
	a.updateVelocities()
	a.OnAngle.Emit(a)
}

func (a *Avatar) updateAngle(step float64) {
	if a.AngularVelocity == 0 {
		return
	}
	if a.directionInLoop {
		a.SetAngle(a.Angle + a.AngularVelocity*step)
	} else {
		a.SetAngle(a.Angle + a.AngularVelocity)
		a.UpdateAngularVelocity(0)
	}
}

func (a *Avatar) updatePosition(step float64) {
	a.SetPosition(a.X+a.VelocityX*step, a.Y+a.VelocityY*step)
}

// UpdateAngularVelocity applies a steer input. factor is -1, 0 or +1;
// inverted controls mirror it.
func (a *Avatar) UpdateAngularVelocity(factor float64) {
	direction := 1.0
	if a.inverse {
		direction = -1.0
	}
	a.setAngularVelocity(factor * a.angularVelocityBase * direction)
}

// RefreshAngularVelocity reapplies the sign of the current angular velocity
// against the current base, after the base or the inverse flag changed.
func (a *Avatar) RefreshAngularVelocity() {
	if a.AngularVelocity == 0 {
		return
	}
	factor := 1.0
	if a.AngularVelocity < 0 {
		factor = -1.0
	}
	if a.inverse {
		factor = -factor
	}
	a.UpdateAngularVelocity(factor)
}

func (a *Avatar) setAngularVelocity(w float64) {
	if a.AngularVelocity != w {
		a.AngularVelocity = w
	}
}

// SetVelocity changes the speed, clamped to at least half the default.
func (a *Avatar) SetVelocity(v float64) {
	if a.velocity == v {
		return
	}
	clamped := math.Max(v, DefaultVelocity/2)
	if a.velocity != clamped {
		a.velocity = clamped
		a.updateVelocities()
	}
	a.OnProperty.Emit(PropertyEvent{Avatar: a, Prop: PropVelocity, Value: a.velocity})
}

func (a *Avatar) updateVelocities() {
	v := a.velocity / 1000
	a.VelocityX = math.Cos(a.Angle) * v
	a.VelocityY = math.Sin(a.Angle) * v
	a.updateBaseAngularVelocity()
}

// updateBaseAngularVelocity scales the turn rate with speed so faster
// avatars steer proportionally while slow ones keep some agility.
func (a *Avatar) updateBaseAngularVelocity() {
	if !a.directionInLoop {
		return
	}
	ratio := a.velocity / DefaultVelocity
	a.angularVelocityBase = ratio*DefaultAngularVelocityBase + math.Log(1/ratio)/1000
	a.RefreshAngularVelocity()
}

// SetRadius changes the collision radius, clamped to an eighth of the
// default, and mirrors it into the body.
func (a *Avatar) SetRadius(r float64) {
	if a.radius == r {
		return
	}
	clamped := math.Max(r, DefaultRadius/8)
	if a.radius != clamped {
		a.radius = clamped
	}
	a.Body.Radius = a.radius
	a.OnProperty.Emit(PropertyEvent{Avatar: a, Prop: PropRadius, Value: a.radius})
}

// SetInverse mirrors or unmirrors steering.
func (a *Avatar) SetInverse(inverse bool) {
	if a.inverse != inverse {
		a.inverse = inverse
		a.RefreshAngularVelocity()
	}
	a.OnProperty.Emit(PropertyEvent{Avatar: a, Prop: PropInverse, Value: a.inverse})
}

// SetInvincible toggles immunity to trail collisions.
func (a *Avatar) SetInvincible(invincible bool) {
	a.invincible = invincible
	a.OnProperty.Emit(PropertyEvent{Avatar: a, Prop: PropInvincible, Value: a.invincible})
}

// SetColor recolors the avatar for the remainder of the effect or round.
func (a *Avatar) SetColor(color string) {
	a.Color = color
	a.OnProperty.Emit(PropertyEvent{Avatar: a, Prop: PropColor, Value: a.Color})
}

// SetPrinting toggles trail emission. Turning printing off seals the current
// segment with a final point and resets the trail geometry.
func (a *Avatar) SetPrinting(printing bool) {
	if a.Printing != printing {
		a.Printing = printing
		a.AddPoint(a.X, a.Y, false)
		if !a.Printing {
			a.Trail.Clear()
		}
	}
	a.OnProperty.Emit(PropertyEvent{Avatar: a, Prop: PropPrinting, Value: a.Printing})
}

// AddPoint records a trail point and announces it; the game turns announced
// points into collision bodies while a round is live.
func (a *Avatar) AddPoint(x, y float64, important bool) {
	a.Trail.AddPoint(x, y)
	a.OnPoint.Emit(PointEvent{Avatar: a, X: x, Y: y, Important: important})
}

// Die marks the avatar dead. killer is the lethal body, nil for wall deaths.
func (a *Avatar) Die(killer *world.Body) {
	a.BonusStack.Clear()
	a.Alive = false
	a.AddPoint(a.X, a.Y, false)
	a.PrintManager.Stop()

	event := DieEvent{Avatar: a}
	if killer != nil {
		if by, ok := killer.Data.(*Avatar); ok {
			event.Killer = by
		}
		event.Old = killer.IsOld()
	}
	a.OnDie.Emit(event)
}

// AddScore credits points to the running round score.
func (a *Avatar) AddScore(score int) {
	a.SetRoundScore(a.RoundScore + score)
}

// ResolveScore commits the round score into the total.
func (a *Avatar) ResolveScore() {
	a.SetScore(a.Score + a.RoundScore)
	a.RoundScore = 0
}

// SetScore sets the committed total score.
func (a *Avatar) SetScore(score int) {
	a.Score = score
	a.OnScore.Emit(a)
}

// SetRoundScore sets the provisional score for the current round.
func (a *Avatar) SetRoundScore(score int) {
	a.RoundScore = score
	a.OnRoundScore.Emit(a)
}

// Clear resets the avatar for a new round. Committed score survives; every
// overridable property returns to its default.
func (a *Avatar) Clear() {
	a.BonusStack.Clear()
	a.X = a.radius
	a.Y = a.radius
	a.Angle = 0
	a.AngularVelocity = 0
	a.RoundScore = 0
	a.velocity = DefaultVelocity
	a.Alive = true
	a.Printing = false
	a.Color = a.Player.Color
	a.radius = DefaultRadius
	a.Body.Radius = DefaultRadius
	a.inverse = false
	a.invincible = false
	a.directionInLoop = true
	a.angularVelocityBase = DefaultAngularVelocityBase
	a.PrintManager.Stop()
	a.BodyCount = 0
	a.updateVelocities()
}

// Destroy removes the avatar from play entirely, when its player leaves.
func (a *Avatar) Destroy() {
	a.Clear()
	a.Present = false
	a.Alive = false
}

// AvatarInfo is the wire form of an avatar.
type AvatarInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Score int    `json:"score"`
}

// Serialize returns the wire form of the avatar.
func (a *Avatar) Serialize() AvatarInfo {
	return AvatarInfo{ID: a.ID, Name: a.Name, Color: a.Color, Score: a.Score}
}

func distance(fromX, fromY, toX, toY float64) float64 {
	dx := fromX - toX
	dy := fromY - toY
	return math.Sqrt(dx*dx + dy*dy)
}
