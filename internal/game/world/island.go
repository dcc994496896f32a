package world

import "math"

// Island is one cell of the world's uniform grid. Bodies that overlap a cell
// are registered on it; queries only inspect the cells under the query body's
// bounding corners.
type Island struct {
	fromX, fromY float64
	toX, toY     float64

	bodies  []*Body
	present map[*Body]int // index into bodies, for O(1) dedupe and removal
}

func newIsland(size, x, y float64) *Island {
	return &Island{
		fromX:   x,
		fromY:   y,
		toX:     x + size,
		toY:     y + size,
		present: make(map[*Body]int),
	}
}

// AddBody registers a body on this island. A body inserted through several
// of its corners lands on the same island only once.
func (i *Island) AddBody(b *Body) {
	if _, ok := i.present[b]; ok {
		return
	}
	i.present[b] = len(i.bodies)
	i.bodies = append(i.bodies, b)
	b.islands = append(b.islands, i)
}

// RemoveBody unregisters a body from this island.
func (i *Island) RemoveBody(b *Body) {
	idx, ok := i.present[b]
	if !ok {
		return
	}
	last := len(i.bodies) - 1
	moved := i.bodies[last]
	i.bodies[idx] = moved
	i.present[moved] = idx
	i.bodies = i.bodies[:last]
	delete(i.present, b)

	for n, is := range b.islands {
		if is == i {
			b.islands = append(b.islands[:n], b.islands[n+1:]...)
			break
		}
	}
}

// GetBody returns the first stored body colliding with the query, or nil.
func (i *Island) GetBody(query *Body) *Body {
	if !i.bodyInBound(query) {
		return nil
	}
	for _, other := range i.bodies {
		if bodiesTouch(other, query) {
			return other
		}
	}
	return nil
}

// TestBody reports whether the query body's position is free on this island.
func (i *Island) TestBody(query *Body) bool {
	return i.GetBody(query) == nil
}

func (i *Island) bodyInBound(b *Body) bool {
	return b.X+b.Radius > i.fromX &&
		b.X-b.Radius < i.toX &&
		b.Y+b.Radius > i.fromY &&
		b.Y-b.Radius < i.toY
}

func bodiesTouch(stored, query *Body) bool {
	dx := stored.X - query.X
	dy := stored.Y - query.Y
	return math.Sqrt(dx*dx+dy*dy) < stored.Radius+query.Radius && stored.Match(query)
}

func (i *Island) clear() {
	i.bodies = i.bodies[:0]
	i.present = make(map[*Body]int)
}
