// Package world provides the spatial index used for trail collision
// detection and free-spot placement.
//
// The play field is a square partitioned into a uniform grid of islands.
// A body is registered on every island one of its four bounding corners
// falls into, so point queries only ever touch at most four cells.
package world

import (
	"math"
	"math/rand"
	"sort"
)

// IslandGridSize is the default island side length. The number of islands
// per row is derived from the world size.
const IslandGridSize = 40

// World is a square play field with island-based spatial partitioning.
// An inactive world rejects insertions; queries still run against whatever
// bodies remain registered.
type World struct {
	Size float64

	islandSize float64
	perSide    int
	islands    []*Island
	active     bool
	bodyCount  int
}

// New creates a world of the given size. islands is the number of cells per
// side; pass 0 to derive it from IslandGridSize.
func New(size float64, islands int) *World {
	if islands <= 0 {
		islands = int(math.Round(size / IslandGridSize))
		if islands < 1 {
			islands = 1
		}
	}
	w := &World{
		Size:       size,
		islandSize: size / float64(islands),
		perSide:    islands,
		islands:    make([]*Island, islands*islands),
	}
	for y := 0; y < islands; y++ {
		for x := 0; x < islands; x++ {
			w.islands[y*islands+x] = newIsland(w.islandSize, float64(x)*w.islandSize, float64(y)*w.islandSize)
		}
	}
	return w
}

// Active reports whether the world accepts bodies.
func (w *World) Active() bool { return w.active }

// Activate enables body insertion.
func (w *World) Activate() { w.active = true }

// Clear deactivates the world, drops all bodies and resets the body counter.
func (w *World) Clear() {
	w.active = false
	w.bodyCount = 0
	for _, i := range w.islands {
		i.clear()
	}
}

// BodyCount returns the number of bodies inserted since the last Clear.
func (w *World) BodyCount() int { return w.bodyCount }

// Bodies returns every registered body once, ordered by insertion. A body
// spanning several islands appears a single time.
func (w *World) Bodies() []*Body {
	seen := make(map[*Body]struct{}, w.bodyCount)
	bodies := make([]*Body, 0, w.bodyCount)
	for _, island := range w.islands {
		for _, b := range island.bodies {
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			bodies = append(bodies, b)
		}
	}
	sort.Slice(bodies, func(a, b int) bool { return bodies[a].ID < bodies[b].ID })
	return bodies
}

func (w *World) islandByPoint(x, y float64) *Island {
	// int() truncates toward zero, so a slightly negative coordinate would
	// land in cell 0 instead of off the field.
	if x < 0 || y < 0 {
		return nil
	}
	ix := int(x / w.islandSize)
	iy := int(y / w.islandSize)
	if ix < 0 || ix >= w.perSide || iy < 0 || iy >= w.perSide {
		return nil
	}
	return w.islands[iy*w.perSide+ix]
}

// AddBody inserts a body, assigning it the next ID. The body is registered
// on every island under its four bounding corners. No-op while inactive.
func (w *World) AddBody(b *Body) {
	if !w.active {
		return
	}
	b.ID = w.bodyCount
	w.bodyCount++

	w.addBodyByPoint(b, b.X-b.Radius, b.Y-b.Radius)
	w.addBodyByPoint(b, b.X+b.Radius, b.Y-b.Radius)
	w.addBodyByPoint(b, b.X-b.Radius, b.Y+b.Radius)
	w.addBodyByPoint(b, b.X+b.Radius, b.Y+b.Radius)
}

func (w *World) addBodyByPoint(b *Body, x, y float64) {
	if island := w.islandByPoint(x, y); island != nil {
		island.AddBody(b)
	}
}

// RemoveBody unregisters a body from every island it touches.
// No-op while inactive.
func (w *World) RemoveBody(b *Body) {
	if !w.active {
		return
	}
	for len(b.islands) > 0 {
		b.islands[0].RemoveBody(b)
	}
}

// GetBody returns any stored body colliding with the query, probing the four
// islands under the query's bounding corners.
func (w *World) GetBody(query *Body) *Body {
	if hit := w.getBodyByPoint(query, query.X-query.Radius, query.Y-query.Radius); hit != nil {
		return hit
	}
	if hit := w.getBodyByPoint(query, query.X+query.Radius, query.Y-query.Radius); hit != nil {
		return hit
	}
	if hit := w.getBodyByPoint(query, query.X-query.Radius, query.Y+query.Radius); hit != nil {
		return hit
	}
	return w.getBodyByPoint(query, query.X+query.Radius, query.Y+query.Radius)
}

func (w *World) getBodyByPoint(query *Body, x, y float64) *Body {
	if island := w.islandByPoint(x, y); island != nil {
		return island.GetBody(query)
	}
	return nil
}

// TestBody reports whether the query position is free. A corner outside the
// field counts as occupied.
func (w *World) TestBody(query *Body) bool {
	return w.testBodyByPoint(query, query.X-query.Radius, query.Y-query.Radius) &&
		w.testBodyByPoint(query, query.X+query.Radius, query.Y-query.Radius) &&
		w.testBodyByPoint(query, query.X-query.Radius, query.Y+query.Radius) &&
		w.testBodyByPoint(query, query.X+query.Radius, query.Y+query.Radius)
}

func (w *World) testBodyByPoint(query *Body, x, y float64) bool {
	island := w.islandByPoint(x, y)
	return island != nil && island.TestBody(query)
}

// GetRandomPosition samples a free position whose probe body of radius
// radius+border*size fits. Gives up after 1000 attempts and returns the last
// sample, so placement degrades instead of blocking on a crowded field.
func (w *World) GetRandomPosition(radius, border float64) (float64, float64) {
	margin := radius + border*w.Size
	probe := NewBody(w.RandomPoint(margin), w.RandomPoint(margin), margin)

	for attempts := 0; !w.TestBody(probe) && attempts < 1000; attempts++ {
		probe.X = w.RandomPoint(margin)
		probe.Y = w.RandomPoint(margin)
	}
	return probe.X, probe.Y
}

// GetRandomDirection samples a heading from (x, y) that does not run into a
// wall within tolerance*size. Gives up after 100 attempts and returns the
// last sample.
func (w *World) GetRandomDirection(x, y, tolerance float64) float64 {
	direction := randomAngle()
	margin := tolerance * w.Size

	for attempts := 0; !w.directionValid(direction, x, y, margin) && attempts < 100; attempts++ {
		direction = randomAngle()
	}
	return direction
}

func (w *World) directionValid(angle, x, y, margin float64) bool {
	quarter := math.Pi / 2

	for i := 0; i < 4; i++ {
		from := quarter * float64(i)
		to := quarter * float64(i+1)
		if angle >= from && angle < to {
			if hypotenuse(angle-from, w.distanceToBorder(i, x, y)) < margin {
				return false
			}
			if hypotenuse(to-angle, w.distanceToBorder((i+1)%4, x, y)) < margin {
				return false
			}
			return true
		}
	}
	return true
}

// distanceToBorder returns the distance from (x, y) to a wall; borders are
// numbered right, bottom, left, top.
func (w *World) distanceToBorder(border int, x, y float64) float64 {
	switch border {
	case 0:
		return w.Size - x
	case 1:
		return w.Size - y
	case 2:
		return x
	case 3:
		return y
	}
	return 0
}

func hypotenuse(angle, adjacent float64) float64 {
	cos := math.Cos(angle)
	if math.Abs(cos) < 0.001 {
		return math.Inf(1)
	}
	return adjacent / cos
}

func randomAngle() float64 {
	return rand.Float64() * math.Pi * 2
}

// RandomPoint samples one coordinate uniformly, keeping margin clear of both
// walls.
func (w *World) RandomPoint(margin float64) float64 {
	return margin + rand.Float64()*(w.Size-margin*2)
}

// GetBoundIntersect returns the wall contact point if the body sits within
// margin of a wall. Walls are checked left, right, top, bottom.
func (w *World) GetBoundIntersect(b *Body, margin float64) (float64, float64, bool) {
	if b.X-margin < 0 {
		return 0, b.Y, true
	}
	if b.X+margin > w.Size {
		return w.Size, b.Y, true
	}
	if b.Y-margin < 0 {
		return b.X, 0, true
	}
	if b.Y+margin > w.Size {
		return b.X, w.Size, true
	}
	return 0, 0, false
}

// GetOpposite maps a point on a wall to the matching point on the opposite
// wall, for borderless wrap-around.
func (w *World) GetOpposite(x, y float64) (float64, float64) {
	if x == 0 {
		return w.Size, y
	}
	if x == w.Size {
		return 0, y
	}
	if y == 0 {
		return x, w.Size
	}
	if y == w.Size {
		return x, 0
	}
	return x, y
}
