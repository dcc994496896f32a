package world

import (
	"math"
	"testing"
)

func TestAddBodyAssignsSequentialIDs(t *testing.T) {
	w := New(100, 0)
	w.Activate()

	a := NewBody(10, 10, 1)
	b := NewBody(50, 50, 1)
	w.AddBody(a)
	w.AddBody(b)

	if a.ID != 0 || b.ID != 1 {
		t.Errorf("expected IDs 0 and 1, got %d and %d", a.ID, b.ID)
	}
	if w.BodyCount() != 2 {
		t.Errorf("expected body count 2, got %d", w.BodyCount())
	}
}

func TestInactiveWorldRejectsBodies(t *testing.T) {
	w := New(100, 0)

	b := NewBody(10, 10, 1)
	w.AddBody(b)

	w.Activate()
	if hit := w.GetBody(NewBody(10, 10, 1)); hit != nil {
		t.Error("body inserted while world was inactive")
	}
}

func TestGetBodyFindsOverlap(t *testing.T) {
	w := New(100, 0)
	w.Activate()

	stored := NewBody(20, 20, 2)
	w.AddBody(stored)

	if hit := w.GetBody(NewBody(21, 20, 1)); hit != stored {
		t.Error("expected overlap with stored body")
	}
	if hit := w.GetBody(NewBody(80, 80, 1)); hit != nil {
		t.Errorf("expected no overlap far away, got %v", hit)
	}
}

func TestTestBodyFailsOutsideField(t *testing.T) {
	w := New(100, 0)
	w.Activate()

	if w.TestBody(NewBody(0.5, 50, 1)) {
		t.Error("position with a corner outside the field should not be free")
	}
	if !w.TestBody(NewBody(50, 50, 1)) {
		t.Error("center of an empty field should be free")
	}
}

func TestTrailSelfCollisionWindow(t *testing.T) {
	const owner = int64(7)
	const latency = 3

	w := New(100, 0)
	w.Activate()

	stored := NewTrailBody(50, 50, 0.6, owner, 10, latency, nil)
	w.AddBody(stored)

	tests := []struct {
		name    string
		num     int
		collide bool
	}{
		{"same point", 10, false},
		{"within latency window", 13, false},
		{"just past window", 14, true},
	}
	for _, tt := range tests {
		head := NewTrailBody(50, 50, 0.6, owner, tt.num, latency, nil)
		hit := w.GetBody(head)
		if (hit != nil) != tt.collide {
			t.Errorf("%s: num=%d collide=%v, want %v", tt.name, tt.num, hit != nil, tt.collide)
		}
	}

	// Another avatar's head always collides.
	other := NewTrailBody(50, 50, 0.6, 8, 0, latency, nil)
	if w.GetBody(other) != stored {
		t.Error("trail must be lethal for other avatars")
	}
}

func TestRemoveBodyClearsAllIslands(t *testing.T) {
	w := New(100, 0)
	w.Activate()

	// Radius larger than half an island so the body straddles cells.
	b := NewBody(33, 33, 20)
	w.AddBody(b)
	w.RemoveBody(b)

	if hit := w.GetBody(NewBody(33, 33, 20)); hit != nil {
		t.Error("removed body still found")
	}
	if len(b.islands) != 0 {
		t.Errorf("removed body still registered on %d islands", len(b.islands))
	}
}

func TestClearResetsWorld(t *testing.T) {
	w := New(100, 0)
	w.Activate()
	w.AddBody(NewBody(50, 50, 1))

	w.Clear()

	if w.Active() {
		t.Error("world should be inactive after clear")
	}
	if w.BodyCount() != 0 {
		t.Errorf("body count should reset, got %d", w.BodyCount())
	}
	w.Activate()
	if hit := w.GetBody(NewBody(50, 50, 1)); hit != nil {
		t.Error("cleared world still holds bodies")
	}
}

func TestBoundIntersectWallOrder(t *testing.T) {
	w := New(100, 0)

	tests := []struct {
		name   string
		x, y   float64
		margin float64
		wx, wy float64
		hit    bool
	}{
		{"left wall", 0.3, 50, 0.6, 0, 50, true},
		{"right wall", 99.8, 50, 0.6, 100, 50, true},
		{"top wall", 50, 0.2, 0.6, 50, 0, true},
		{"bottom wall", 50, 99.9, 0.6, 50, 100, true},
		{"corner resolves to x first", 0.3, 0.2, 0.6, 0, 0.2, true},
		{"clear of walls", 50, 50, 0.6, 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := w.GetBoundIntersect(NewBody(tt.x, tt.y, 0.6), tt.margin)
		if ok != tt.hit {
			t.Errorf("%s: hit=%v, want %v", tt.name, ok, tt.hit)
			continue
		}
		if ok && (x != tt.wx || y != tt.wy) {
			t.Errorf("%s: contact (%v,%v), want (%v,%v)", tt.name, x, y, tt.wx, tt.wy)
		}
	}
}

func TestGetOppositeWraps(t *testing.T) {
	w := New(100, 0)

	tests := []struct {
		x, y   float64
		ox, oy float64
	}{
		{0, 40, 100, 40},
		{100, 40, 0, 40},
		{40, 0, 40, 100},
		{40, 100, 40, 0},
		{40, 40, 40, 40},
	}
	for _, tt := range tests {
		ox, oy := w.GetOpposite(tt.x, tt.y)
		if ox != tt.ox || oy != tt.oy {
			t.Errorf("GetOpposite(%v,%v) = (%v,%v), want (%v,%v)", tt.x, tt.y, ox, oy, tt.ox, tt.oy)
		}
	}
}

func TestRandomPositionStaysInsideMargin(t *testing.T) {
	w := New(100, 0)
	w.Activate()

	const radius, border = 0.6, 0.05
	margin := radius + border*w.Size

	for i := 0; i < 50; i++ {
		x, y := w.GetRandomPosition(radius, border)
		if x < margin || x > w.Size-margin || y < margin || y > w.Size-margin {
			t.Fatalf("position (%v,%v) violates margin %v", x, y, margin)
		}
	}
}

func TestRandomDirectionRange(t *testing.T) {
	w := New(100, 0)

	for i := 0; i < 50; i++ {
		d := w.GetRandomDirection(50, 50, 0.3)
		if d < 0 || d >= 2*math.Pi {
			t.Fatalf("direction %v out of range", d)
		}
	}
}
