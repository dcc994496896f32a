package game

import (
	"math"
	"sync"
	"time"

	"trail-arena/internal/game/world"
)

const (
	frameDuration = time.Second / 60

	// warmupTime is the pause between round announcement and movement.
	warmupTime = 3000 * time.Millisecond
	// warmdownTime is the pause between a round ending and the next starting.
	warmdownTime = 5000 * time.Millisecond
	// printStartDelay keeps fresh spawns trail-free for a moment.
	printStartDelay = 3000 * time.Millisecond

	perPlayerSize = 80.0
	spawnMargin   = 0.05
	angleMargin   = 0.3
)

// tickObserver, when set, receives the wall time each simulation step took.
// Wired once at startup before any game runs.
var tickObserver func(time.Duration)

// SetTickObserver installs the tick timing hook.
func SetTickObserver(fn func(time.Duration)) { tickObserver = fn }

// GameSize returns the side length of the square field for a player count.
// The area grows by a fifth of the solo field per extra player.
func GameSize(count int) float64 {
	area := perPlayerSize * perPlayerSize
	return math.Round(math.Sqrt(area + float64(count-1)*area/5))
}

// Game runs one match: a sequence of rounds on a shared field until a
// player reaches the score target.
//
// All state is guarded by the room's mutex, shared so timers, the tick loop
// and the socket layer serialize against each other.
type Game struct {
	Name     string
	Avatars  []*Avatar
	World    *world.World
	Size     float64
	MaxScore int

	BonusManager *BonusManager
	BonusStack   *GameBonusStack

	Started    bool
	InRound    bool
	Borderless bool

	RoundWinner *Avatar
	GameWinner  *Avatar

	mu         *sync.Mutex
	deaths     []*Avatar
	renderedAt time.Time
	loopStop   chan struct{}
	timer      *time.Timer
	pointSubs  map[*Avatar]*Subscription[PointEvent]

	OnStart      Signal[struct{}]
	OnStop       Signal[struct{}]
	OnRoundNew   Signal[struct{}]
	OnRoundEnd   Signal[*Avatar]
	OnBorderless Signal[bool]
	OnClear      Signal[struct{}]
	OnEnd        Signal[struct{}]
	OnLeave      Signal[*Player]
}

// NewGame builds a match for the given roster. mu is the room lock; every
// entry point into the game runs under it.
func NewGame(name string, players []*Player, maxScore int, kinds []BonusKind, bonusRate float64, mu *sync.Mutex) *Game {
	g := &Game{
		Name:      name,
		MaxScore:  maxScore,
		mu:        mu,
		pointSubs: make(map[*Avatar]*Subscription[PointEvent]),
	}
	for _, player := range players {
		avatar := player.GetAvatar()
		g.Avatars = append(g.Avatars, avatar)
		g.watchPoints(avatar)
	}
	g.Size = GameSize(len(g.Avatars))
	g.World = world.New(g.Size, 0)
	g.BonusManager = newBonusManager(g, kinds, bonusRate)
	g.BonusStack = newGameBonusStack(g)
	return g
}

func (g *Game) watchPoints(avatar *Avatar) {
	a := avatar
	g.pointSubs[a] = a.OnPoint.Subscribe(func(p PointEvent) {
		if g.Started && g.World.Active() {
			g.World.AddBody(world.NewTrailBody(p.X, p.Y, a.Radius(), a.ID, a.BodyCount, DefaultTrailLatency, a))
			a.BodyCount++
		}
	})
}

// Rendered reports whether the tick loop has produced a frame this round.
func (g *Game) Rendered() bool { return !g.renderedAt.IsZero() }

// IsReady reports whether every avatar has finished loading.
func (g *Game) IsReady() bool {
	for _, avatar := range g.Avatars {
		if !avatar.Ready {
			return false
		}
	}
	return true
}

// AvatarByID returns the avatar with the given id, or nil.
func (g *Game) AvatarByID(id int64) *Avatar {
	for _, avatar := range g.Avatars {
		if avatar.ID == id {
			return avatar
		}
	}
	return nil
}

func (g *Game) presentCount() int {
	count := 0
	for _, avatar := range g.Avatars {
		if avatar.Present {
			count++
		}
	}
	return count
}

func (g *Game) aliveCount() int {
	count := 0
	for _, avatar := range g.Avatars {
		if avatar.Alive {
			count++
		}
	}
	return count
}

// NewRound announces a fresh round and schedules movement after the warmup.
func (g *Game) NewRound() {
	g.Started = true
	if g.InRound {
		return
	}
	g.InRound = true
	g.onRoundNew()
	g.schedule(warmupTime, func() {
		if g.Started && g.InRound {
			g.start()
		}
	})
}

func (g *Game) onRoundNew() {
	g.OnRoundNew.Emit(struct{}{})
	g.SetBorderless(false)
	g.BonusManager.Clear()
	for _, avatar := range g.Avatars {
		if avatar.Present {
			avatar.Clear()
		}
	}
	g.RoundWinner = nil
	g.World.Clear()
	g.deaths = g.deaths[:0]
	g.BonusStack.Clear()
	for _, avatar := range g.Avatars {
		if avatar.Present {
			x, y := g.World.GetRandomPosition(avatar.Radius(), spawnMargin)
			avatar.SetPosition(x, y)
			avatar.SetAngle(g.World.GetRandomDirection(x, y, angleMargin))
		} else {
			g.deaths = append(g.deaths, avatar)
		}
	}
}

func (g *Game) start() {
	if g.loopStop != nil {
		return
	}
	g.onStart()
	g.renderedAt = time.Now()
	stop := make(chan struct{})
	g.loopStop = stop
	go g.run(stop)
}

func (g *Game) onStart() {
	g.OnStart.Emit(struct{}{})
	for _, avatar := range g.Avatars {
		a := avatar
		time.AfterFunc(printStartDelay, func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.Started && a.Alive {
				a.PrintManager.Start()
			}
		})
	}
	g.World.Activate()
	g.BonusManager.Start()
}

func (g *Game) run(stop chan struct{}) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.tick(stop)
		}
	}
}

func (g *Game) tick(stop chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loopStop != stop {
		return
	}
	now := time.Now()
	step := now.Sub(g.renderedAt).Seconds() * 1000
	g.renderedAt = now
	g.update(step)
	if tickObserver != nil {
		tickObserver(time.Since(now))
	}
}

// update advances every living avatar by step milliseconds and resolves
// deaths. Avatars dying in the same frame share the pre-frame death count,
// so simultaneous kills score identically.
func (g *Game) update(step float64) {
	score := len(g.deaths)
	deathInFrame := false

	for _, avatar := range g.Avatars {
		if !avatar.Alive {
			continue
		}
		avatar.Update(step)

		margin := avatar.Radius()
		if g.Borderless {
			margin = 0
		}
		if bx, by, hit := g.World.GetBoundIntersect(avatar.Body, margin); hit {
			if g.Borderless {
				avatar.SetPosition(g.World.GetOpposite(bx, by))
			} else {
				g.kill(avatar, nil, score)
				deathInFrame = true
			}
		} else if !avatar.Invincible() {
			if body := g.World.GetBody(avatar.Body); body != nil {
				g.kill(avatar, body, score)
				deathInFrame = true
			}
		}

		if avatar.Alive {
			avatar.PrintManager.Test()
			g.BonusManager.TestCatch(avatar)
		}
	}

	if deathInFrame {
		g.checkRoundEnd()
	}
}

func (g *Game) kill(avatar *Avatar, killer *world.Body, score int) {
	avatar.Die(killer)
	avatar.AddScore(score)
	g.deaths = append(g.deaths, avatar)
}

func (g *Game) checkRoundEnd() {
	if !g.InRound {
		return
	}
	if g.aliveCount() > 1 {
		return
	}
	g.endRound()
}

func (g *Game) endRound() {
	g.InRound = false
	g.onRoundEnd()
	g.schedule(warmdownTime, func() {
		if g.Started {
			g.stop()
		}
	})
}

func (g *Game) onRoundEnd() {
	g.resolveScores()
	g.OnRoundEnd.Emit(g.RoundWinner)
}

// resolveScores credits the survivor and folds every round score into the
// totals. Solo games score against the clock, so the lone avatar still earns
// a point per survived round.
func (g *Game) resolveScores() {
	var winner *Avatar
	if len(g.Avatars) == 1 {
		winner = g.Avatars[0]
	} else {
		for _, avatar := range g.Avatars {
			if avatar.Alive {
				winner = avatar
				break
			}
		}
	}
	if winner != nil {
		bounty := len(g.Avatars) - 1
		if bounty < 1 {
			bounty = 1
		}
		winner.AddScore(bounty)
		g.RoundWinner = winner
	}
	for _, avatar := range g.Avatars {
		avatar.ResolveScore()
	}
}

func (g *Game) stop() {
	if g.loopStop == nil {
		return
	}
	close(g.loopStop)
	g.loopStop = nil
	g.onStop()
}

func (g *Game) onStop() {
	g.OnStop.Emit(struct{}{})
	g.BonusManager.Stop()
	g.renderedAt = time.Time{}

	if size := GameSize(g.presentCount()); size != g.Size {
		g.Size = size
		g.World = world.New(size, 0)
		g.BonusManager.SetSize()
	}

	winner, won := g.isWon()
	if won {
		if winner != nil {
			g.GameWinner = winner
		}
		g.End()
	} else {
		g.NewRound()
	}
}

// isWon decides whether the match is over. A drained roster ends the match
// with no winner; otherwise the match ends once a single present avatar
// holds the top score at or above the target.
func (g *Game) isWon() (*Avatar, bool) {
	present := g.presentCount()
	if present <= 0 {
		return nil, true
	}
	if len(g.Avatars) > 1 && present <= 1 {
		return nil, true
	}

	var reached []*Avatar
	for _, avatar := range g.Avatars {
		if avatar.Present && avatar.Score >= g.MaxScore {
			reached = append(reached, avatar)
		}
	}
	switch len(reached) {
	case 0:
		return nil, false
	case 1:
		return reached[0], true
	}

	top := reached[0]
	second := reached[1]
	for _, avatar := range reached[1:] {
		if avatar.Score > top.Score {
			second = top
			top = avatar
		} else if avatar.Score > second.Score {
			second = avatar
		}
	}
	if top.Score == second.Score {
		return nil, false
	}
	return top, true
}

// RemoveAvatar retires a leaver's avatar in place and ends the round if at
// most one avatar stays alive. The avatar stays in the roster so win
// detection and score resolution still see the full match size.
func (g *Game) RemoveAvatar(avatar *Avatar) {
	found := false
	for _, a := range g.Avatars {
		if a == avatar {
			found = true
			break
		}
	}
	if !found || !avatar.Present {
		return
	}
	if sub := g.pointSubs[avatar]; sub != nil {
		avatar.OnPoint.Unsubscribe(sub)
		delete(g.pointSubs, avatar)
	}
	if avatar.Alive {
		avatar.Die(nil)
	}
	avatar.Destroy()
	g.OnLeave.Emit(avatar.Player)
	g.checkRoundEnd()
}

// ClearTrails wipes every trail body off the field mid-round.
func (g *Game) ClearTrails() {
	g.World.Clear()
	g.World.Activate()
	g.OnClear.Emit(struct{}{})
}

// SetBorderless toggles wrap-around walls.
func (g *Game) SetBorderless(borderless bool) {
	if g.Borderless == borderless {
		return
	}
	g.Borderless = borderless
	g.OnBorderless.Emit(borderless)
}

// End terminates the match and releases its resources.
func (g *Game) End() {
	if !g.Started {
		return
	}
	g.Started = false
	g.stop()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.OnEnd.Emit(struct{}{})
	for avatar, sub := range g.pointSubs {
		avatar.OnPoint.Unsubscribe(sub)
		delete(g.pointSubs, avatar)
	}
	g.Avatars = nil
	g.World.Clear()
}

// schedule arms the round transition timer; the callback re-locks the game
// and revalidates its own preconditions.
func (g *Game) schedule(d time.Duration, fn func()) {
	g.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		fn()
	})
}
