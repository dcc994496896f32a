package world

import "time"

// TrailOldAge is the age after which a trail point counts as "old".
// Clients use this to distinguish fresh kills from crashes into stale trails.
const TrailOldAge = 2000 * time.Millisecond

// Body is a circular collision body. Plain bodies (bonuses, placement probes)
// collide with everything; trail bodies carry owner metadata so an avatar can
// cross its own freshly printed points without dying.
type Body struct {
	X      float64
	Y      float64
	Radius float64

	// ID is assigned by the world on insertion.
	ID int

	// Data is an opaque owner payload, used for kill attribution.
	Data any

	// Trail metadata. Owner is zero for plain bodies.
	Owner   int64
	Num     int
	Latency int
	Birth   time.Time

	islands []*Island
}

// NewBody returns a plain body that collides with everything.
func NewBody(x, y, radius float64) *Body {
	return &Body{X: x, Y: y, Radius: radius}
}

// NewTrailBody returns a trail point owned by an avatar. num is the point's
// sequence number in the owner's trail; latency is the number of most recent
// points the owner may still overlap without colliding.
func NewTrailBody(x, y, radius float64, owner int64, num, latency int, data any) *Body {
	return &Body{
		X:       x,
		Y:       y,
		Radius:  radius,
		Owner:   owner,
		Num:     num,
		Latency: latency,
		Birth:   time.Now(),
		Data:    data,
	}
}

// Match reports whether this stored body should collide with the query body.
// Two trail bodies of the same owner only collide when the query is more than
// Latency points ahead of this one.
func (b *Body) Match(query *Body) bool {
	if b.Owner != 0 && b.Owner == query.Owner {
		return query.Num-b.Num > b.Latency
	}
	return true
}

// IsOld reports whether this trail point has been on the field long enough
// to count as stale.
func (b *Body) IsOld() bool {
	return time.Since(b.Birth) >= TrailOldAge
}
