package game

import (
	"math"
	"testing"
)

func testPlayer(name string) *Player {
	return NewPlayer(nil, name, "#ff9900")
}

func TestAvatarVelocityComponents(t *testing.T) {
	avatar := NewAvatar(testPlayer("turner"))

	angles := []float64{0, math.Pi / 4, math.Pi / 2, math.Pi, 5.1}
	for _, angle := range angles {
		avatar.SetAngle(angle)
		speed := math.Sqrt(avatar.VelocityX*avatar.VelocityX+avatar.VelocityY*avatar.VelocityY) * 1000
		if math.Abs(speed-avatar.Velocity()) > 1e-9 {
			t.Errorf("angle %.2f: speed %.6f, want %.6f", angle, speed, avatar.Velocity())
		}
	}
}

func TestAvatarVelocityClamp(t *testing.T) {
	avatar := NewAvatar(testPlayer("slow"))

	avatar.SetVelocity(1)
	if got := avatar.Velocity(); got != DefaultVelocity/2 {
		t.Errorf("velocity = %v, want clamp at %v", got, DefaultVelocity/2)
	}
}

func TestAvatarRadiusClamp(t *testing.T) {
	avatar := NewAvatar(testPlayer("thin"))

	avatar.SetRadius(0)
	if got := avatar.Radius(); got != DefaultRadius/8 {
		t.Errorf("radius = %v, want clamp at %v", got, DefaultRadius/8)
	}
	if avatar.Body.Radius != avatar.Radius() {
		t.Errorf("body radius %v not mirrored from avatar radius %v", avatar.Body.Radius, avatar.Radius())
	}
}

func TestAvatarSteering(t *testing.T) {
	avatar := NewAvatar(testPlayer("steer"))

	avatar.UpdateAngularVelocity(1)
	if avatar.AngularVelocity <= 0 {
		t.Fatalf("angular velocity = %v, want positive", avatar.AngularVelocity)
	}

	// Inverting mid-turn keeps the current turn direction; only new inputs
	// are mirrored.
	avatar.SetInverse(true)
	if avatar.AngularVelocity <= 0 {
		t.Errorf("after inverse, angular velocity = %v, want direction preserved", avatar.AngularVelocity)
	}

	avatar.UpdateAngularVelocity(1)
	if avatar.AngularVelocity >= 0 {
		t.Errorf("inverted steer input, angular velocity = %v, want negative", avatar.AngularVelocity)
	}

	avatar.UpdateAngularVelocity(0)
	if avatar.AngularVelocity != 0 {
		t.Errorf("released steering, angular velocity = %v, want 0", avatar.AngularVelocity)
	}
}

func TestAvatarDiscreteTurn(t *testing.T) {
	avatar := NewAvatar(testPlayer("square"))
	avatar.directionInLoop = false
	avatar.angularVelocityBase = math.Pi / 2

	avatar.UpdateAngularVelocity(1)
	before := avatar.Angle
	avatar.Update(16)

	if got := avatar.Angle - before; math.Abs(got-math.Pi/2) > 1e-9 {
		t.Errorf("turned %v, want one quarter turn", got)
	}
	if avatar.AngularVelocity != 0 {
		t.Errorf("angular velocity = %v after discrete turn, want 0", avatar.AngularVelocity)
	}
}

func TestAvatarPositionRefreshesBodyNum(t *testing.T) {
	avatar := NewAvatar(testPlayer("seq"))
	avatar.BodyCount = 7

	avatar.SetPosition(10, 20)

	if avatar.Body.X != 10 || avatar.Body.Y != 20 {
		t.Errorf("body at (%v, %v), want (10, 20)", avatar.Body.X, avatar.Body.Y)
	}
	if avatar.Body.Num != 7 {
		t.Errorf("body num = %d, want current body count 7", avatar.Body.Num)
	}
}

func TestAvatarPropertyEmits(t *testing.T) {
	avatar := NewAvatar(testPlayer("emit"))

	var events []Property
	avatar.OnProperty.Subscribe(func(e PropertyEvent) {
		events = append(events, e.Prop)
	})

	avatar.SetVelocity(DefaultVelocity) // unchanged, no emit
	avatar.SetVelocity(20)
	avatar.SetInvincible(true)
	avatar.SetInvincible(true) // emits even when unchanged
	avatar.SetColor("#aabbcc")

	want := []Property{PropVelocity, PropInvincible, PropInvincible, PropColor}
	if len(events) != len(want) {
		t.Fatalf("got %d property events %v, want %v", len(events), events, want)
	}
	for i, prop := range want {
		if events[i] != prop {
			t.Errorf("event %d = %v, want %v", i, events[i], prop)
		}
	}
}

func TestAvatarDie(t *testing.T) {
	avatar := NewAvatar(testPlayer("victim"))
	killerAvatar := NewAvatar(testPlayer("killer"))

	var died []DieEvent
	avatar.OnDie.Subscribe(func(e DieEvent) {
		died = append(died, e)
	})

	avatar.Die(killerAvatar.Body)

	if avatar.Alive {
		t.Fatal("avatar still alive after Die")
	}
	if len(died) != 1 {
		t.Fatalf("got %d die events, want 1", len(died))
	}
	if died[0].Killer != killerAvatar {
		t.Errorf("killer = %v, want the killer avatar", died[0].Killer)
	}

	wall := NewAvatar(testPlayer("wall"))
	wall.OnDie.Subscribe(func(e DieEvent) {
		if e.Killer != nil {
			t.Errorf("wall death killer = %v, want nil", e.Killer)
		}
	})
	wall.Die(nil)
}

func TestAvatarClearRestoresDefaults(t *testing.T) {
	avatar := NewAvatar(testPlayer("reset"))
	avatar.SetVelocity(24)
	avatar.SetRadius(2)
	avatar.SetInverse(true)
	avatar.SetInvincible(true)
	avatar.SetColor("#123456")
	avatar.SetScore(5)
	avatar.SetRoundScore(2)
	avatar.Die(nil)

	avatar.Clear()

	if !avatar.Alive {
		t.Error("avatar not alive after Clear")
	}
	if avatar.Velocity() != DefaultVelocity {
		t.Errorf("velocity = %v, want %v", avatar.Velocity(), DefaultVelocity)
	}
	if avatar.Radius() != DefaultRadius {
		t.Errorf("radius = %v, want %v", avatar.Radius(), DefaultRadius)
	}
	if avatar.Inverse() || avatar.Invincible() {
		t.Error("inverse/invincible flags survived Clear")
	}
	if avatar.Color != avatar.Player.Color {
		t.Errorf("color = %q, want player color %q", avatar.Color, avatar.Player.Color)
	}
	if avatar.RoundScore != 0 {
		t.Errorf("round score = %d, want 0", avatar.RoundScore)
	}
	if avatar.Score != 5 {
		t.Errorf("committed score = %d, want it preserved", avatar.Score)
	}
	if avatar.BodyCount != 0 {
		t.Errorf("body count = %d, want 0", avatar.BodyCount)
	}
	speed := math.Sqrt(avatar.VelocityX*avatar.VelocityX+avatar.VelocityY*avatar.VelocityY) * 1000
	if math.Abs(speed-DefaultVelocity) > 1e-9 {
		t.Errorf("speed after Clear = %v, want %v", speed, DefaultVelocity)
	}
}

func TestAvatarScoreResolution(t *testing.T) {
	avatar := NewAvatar(testPlayer("scorer"))

	avatar.AddScore(2)
	avatar.AddScore(3)
	if avatar.RoundScore != 5 {
		t.Fatalf("round score = %d, want 5", avatar.RoundScore)
	}
	if avatar.Score != 0 {
		t.Fatalf("score = %d before resolve, want 0", avatar.Score)
	}

	avatar.ResolveScore()
	if avatar.Score != 5 || avatar.RoundScore != 0 {
		t.Errorf("after resolve score = %d round = %d, want 5 and 0", avatar.Score, avatar.RoundScore)
	}
}

func TestAvatarTrailEmission(t *testing.T) {
	avatar := NewAvatar(testPlayer("printer"))
	avatar.SetPosition(50, 50)
	avatar.SetPrinting(true)

	var points []PointEvent
	avatar.OnPoint.Subscribe(func(e PointEvent) {
		points = append(points, e)
	})

	// Trail already holds the toggle point at (50, 50); a move shorter than
	// the radius must not emit.
	avatar.SetPosition(50.1, 50)
	avatar.Update(0)
	if len(points) != 0 {
		t.Fatalf("emitted %d points within radius, want 0", len(points))
	}

	avatar.SetPosition(52, 50)
	avatar.Update(0)
	if len(points) != 1 {
		t.Fatalf("emitted %d points after moving past radius, want 1", len(points))
	}
}
