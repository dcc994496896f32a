package game

import (
	"math"
	"math/rand"
)

const (
	// printDistance is the base length of a printed segment.
	printDistance = 60.0
	// holeDistance is the base length of a gap between segments.
	holeDistance = 5.0
)

// PrintManager toggles an avatar's printing state to produce intermittent
// trail gaps. Each toggle samples a random distance budget; the per-frame
// test subtracts the distance travelled and toggles when the budget runs out.
type PrintManager struct {
	avatar   *Avatar
	active   bool
	lastX    float64
	lastY    float64
	distance float64
}

func newPrintManager(avatar *Avatar) *PrintManager {
	return &PrintManager{avatar: avatar}
}

// Start begins the print cycle with printing on.
func (m *PrintManager) Start() {
	if !m.active {
		m.active = true
		m.lastX = m.avatar.X
		m.lastY = m.avatar.Y
		m.setPrinting(true)
	}
}

// Stop forces printing off and resets the cycle.
func (m *PrintManager) Stop() {
	if m.active {
		m.active = false
		m.setPrinting(false)
		m.clear()
	}
}

// Test consumes the distance travelled since the last frame and toggles
// printing when the current budget is spent.
func (m *PrintManager) Test() {
	if !m.active {
		return
	}
	dx := m.lastX - m.avatar.X
	dy := m.lastY - m.avatar.Y
	m.distance -= math.Sqrt(dx*dx + dy*dy)

	m.lastX = m.avatar.X
	m.lastY = m.avatar.Y

	if m.distance <= 0 {
		m.togglePrinting()
	}
}

func (m *PrintManager) togglePrinting() {
	m.setPrinting(!m.avatar.Printing)
}

func (m *PrintManager) setPrinting(printing bool) {
	m.avatar.SetPrinting(printing)
	m.distance = m.randomDistance()
}

func (m *PrintManager) randomDistance() float64 {
	if m.avatar.Printing {
		return printDistance * (0.3 + rand.Float64()*0.7)
	}
	return holeDistance * (0.8 + rand.Float64()*0.5)
}

func (m *PrintManager) clear() {
	m.active = false
	m.distance = 0
	m.lastX = 0
	m.lastY = 0
}
