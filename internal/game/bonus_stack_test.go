package game

import (
	"math"
	"testing"
)

func TestBonusStackRadiusScaling(t *testing.T) {
	avatar := NewAvatar(testPlayer("big"))
	grow := NewBonus(BonusEnemyBig)
	shrink := NewBonus(BonusSelfSmall)

	avatar.BonusStack.Add(grow)
	if got := avatar.Radius(); got != DefaultRadius*2 {
		t.Errorf("one grow: radius = %v, want %v", got, DefaultRadius*2)
	}

	avatar.BonusStack.Add(shrink)
	if got := avatar.Radius(); got != DefaultRadius {
		t.Errorf("grow+shrink: radius = %v, want default %v", got, DefaultRadius)
	}

	avatar.BonusStack.Remove(grow)
	if got := avatar.Radius(); got != DefaultRadius/2 {
		t.Errorf("shrink only: radius = %v, want %v", got, DefaultRadius/2)
	}

	avatar.BonusStack.Remove(shrink)
	if got := avatar.Radius(); got != DefaultRadius {
		t.Errorf("empty stack: radius = %v, want default", got)
	}
}

func TestBonusStackVelocityFolding(t *testing.T) {
	avatar := NewAvatar(testPlayer("racer"))
	fast := NewBonus(BonusSelfFast)
	slow := NewBonus(BonusEnemySlow)

	avatar.BonusStack.Add(fast)
	if got := avatar.Velocity(); got != DefaultVelocity*1.5 {
		t.Errorf("fast: velocity = %v, want %v", got, DefaultVelocity*1.5)
	}

	avatar.BonusStack.Add(slow)
	want := DefaultVelocity + DefaultVelocity/2 - DefaultVelocity*3/4
	if got := avatar.Velocity(); got != want {
		t.Errorf("fast+slow: velocity = %v, want %v", got, want)
	}

	avatar.BonusStack.Remove(fast)
	avatar.BonusStack.Remove(slow)
	if got := avatar.Velocity(); got != DefaultVelocity {
		t.Errorf("empty stack: velocity = %v, want default", got)
	}
}

func TestBonusStackInverseParity(t *testing.T) {
	avatar := NewAvatar(testPlayer("mirror"))
	first := NewBonus(BonusEnemyInverse)
	second := NewBonus(BonusEnemyInverse)

	avatar.BonusStack.Add(first)
	if !avatar.Inverse() {
		t.Error("one inverse bonus: want mirrored controls")
	}

	avatar.BonusStack.Add(second)
	if avatar.Inverse() {
		t.Error("two inverse bonuses: even count should cancel out")
	}

	avatar.BonusStack.Remove(first)
	if !avatar.Inverse() {
		t.Error("back to one inverse bonus: want mirrored controls")
	}
}

func TestBonusStackInvincibleCount(t *testing.T) {
	avatar := NewAvatar(testPlayer("ghost"))
	a := NewBonus(BonusSelfMaster)
	b := NewBonus(BonusSelfMaster)

	avatar.BonusStack.Add(a)
	avatar.BonusStack.Add(b)
	avatar.BonusStack.Remove(a)
	if !avatar.Invincible() {
		t.Error("one master bonus still active: want invincible")
	}

	avatar.BonusStack.Remove(b)
	if avatar.Invincible() {
		t.Error("empty stack: want vulnerable")
	}
}

func TestBonusStackColorReplaces(t *testing.T) {
	avatar := NewAvatar(testPlayer("painted"))
	base := avatar.Player.Color
	paint := NewBonus(BonusAllColor)

	avatar.BonusStack.Add(paint)
	if avatar.Color == base {
		t.Error("color bonus active but avatar kept its base color")
	}
	if got := paint.Effects()[0].Color; avatar.Color != got {
		t.Errorf("avatar color = %q, want bonus color %q", avatar.Color, got)
	}

	avatar.BonusStack.Remove(paint)
	if avatar.Color != base {
		t.Errorf("color = %q after removal, want base %q", avatar.Color, base)
	}
}

func TestBonusStackStraightAngle(t *testing.T) {
	avatar := NewAvatar(testPlayer("angular"))
	straight := NewBonus(BonusEnemyStraightAngle)

	avatar.BonusStack.Add(straight)
	if avatar.DirectionInLoop() {
		t.Error("straight-angle active: want discrete turning")
	}
	if got := avatar.AngularVelocityBase(); got != math.Pi/2 {
		t.Errorf("turn base = %v, want quarter turn", got)
	}

	avatar.BonusStack.Remove(straight)
	if !avatar.DirectionInLoop() {
		t.Error("straight-angle removed: want continuous turning back")
	}
	if got := avatar.AngularVelocityBase(); got != DefaultAngularVelocityBase {
		t.Errorf("turn base = %v, want default", got)
	}
}

func TestBonusStackChangeEvents(t *testing.T) {
	avatar := NewAvatar(testPlayer("watched"))
	bonus := NewBonus(BonusSelfFast)

	var changes []StackChange
	avatar.BonusStack.OnChange.Subscribe(func(c StackChange) {
		changes = append(changes, c)
	})

	avatar.BonusStack.Add(bonus)
	avatar.BonusStack.Add(bonus) // duplicate still announces
	avatar.BonusStack.Remove(bonus)

	want := []string{"add", "add", "remove"}
	if len(changes) != len(want) {
		t.Fatalf("got %d change events, want %d", len(changes), len(want))
	}
	for i, method := range want {
		if changes[i].Method != method {
			t.Errorf("change %d = %q, want %q", i, changes[i].Method, method)
		}
		if changes[i].Bonus != bonus {
			t.Errorf("change %d carries wrong bonus", i)
		}
	}
}

func TestBonusStackPrintingControl(t *testing.T) {
	avatar := NewAvatar(testPlayer("inker"))
	avatar.PrintManager.Start()
	if !avatar.Printing {
		t.Fatal("print manager start did not enable printing")
	}

	// A synthetic printing debuff suspends the print cycle entirely.
	off := &Bonus{Kind: BonusSelfSlow, effects: []Effect{{Prop: PropPrinting, Value: -1}}}
	avatar.BonusStack.Add(off)
	if avatar.Printing {
		t.Error("printing debuff active but avatar still printing")
	}

	avatar.BonusStack.Remove(off)
	if !avatar.Printing {
		t.Error("printing debuff removed but print cycle not restarted")
	}
}
