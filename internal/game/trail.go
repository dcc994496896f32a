package game

// Point is a position in world coordinates.
type Point struct {
	X, Y float64
}

// Trail is the append-only list of points an avatar has printed since its
// trail was last cleared. The lethal collision bodies for those points live
// in the game world; the trail itself only tracks geometry and the last
// printed point, which drives emission spacing.
type Trail struct {
	avatar  *Avatar
	points  []Point
	last    Point
	hasLast bool
}

func newTrail(avatar *Avatar) *Trail {
	return &Trail{avatar: avatar}
}

// AddPoint appends a point and remembers it as the last printed position.
func (t *Trail) AddPoint(x, y float64) {
	t.points = append(t.points, Point{X: x, Y: y})
	t.last = Point{X: x, Y: y}
	t.hasLast = true
}

// LastPoint returns the last printed point, if any.
func (t *Trail) LastPoint() (Point, bool) {
	return t.last, t.hasLast
}

// Points returns the printed points since the last clear.
func (t *Trail) Points() []Point {
	return t.points
}

// Clear forgets all points. The next printed point is emitted
// unconditionally.
func (t *Trail) Clear() {
	t.points = t.points[:0]
	t.hasLast = false
}
