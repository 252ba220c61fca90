package game

import (
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pixil98/go-pulse/internal/driver"
)

// Broadcaster delivers engine output to connected clients.
type Broadcaster interface {
	BroadcastState(State)
	BroadcastGameOver(finalScore int)
}

// Engine is the sole authority over game state. All of its methods must run on the
// driver it was built with.
type Engine struct {
	driver *driver.Driver
	tuning Tuning
	out    Broadcaster
	rng    *rand.Rand

	state  State
	phase  Phase
	nextID int

	// expiry holds the deadline of every live target. Remaining lifetimes are derived
	// from it so a target spawned on a tick boundary still lives its full lifetime.
	expiry map[int]time.Time

	tickTask  *driver.Task
	scoreTask *driver.Task
	spawnTask *driver.Task

	// Broadcast throttling: a tick only sends a snapshot when something changed.
	lastBroadcastScore int
	dirty              bool

	departed      map[string]bool
	contributions map[string]int

	observers []func(Event)
}

type EngineOpt func(*Engine)

func WithTuning(t Tuning) EngineOpt {
	return func(e *Engine) {
		e.tuning = t
	}
}

// WithRand sets the source used for target placement.
func WithRand(r *rand.Rand) EngineOpt {
	return func(e *Engine) {
		e.rng = r
	}
}

func NewEngine(d *driver.Driver, out Broadcaster, opts ...EngineOpt) *Engine {
	e := &Engine{
		driver:        d,
		tuning:        DefaultTuning(),
		out:           out,
		state:         State{Targets: []Target{}},
		expiry:        map[int]time.Time{},
		departed:      map[string]bool{},
		contributions: map[string]int{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return e
}

// OnEvent registers fn to be called for every engine event.
func (e *Engine) OnEvent(fn func(Event)) {
	e.observers = append(e.observers, fn)
}

func (e *Engine) Phase() Phase {
	return e.phase
}

func (e *Engine) Tuning() Tuning {
	return e.tuning
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state.Clone()
}

// Contributions returns targets claimed per connected peer in the current game.
func (e *Engine) Contributions() map[string]int {
	return maps.Clone(e.contributions)
}

// SetTuning replaces the tuning used by the next game. It is refused while a game is
// running.
func (e *Engine) SetTuning(t Tuning) bool {
	if e.phase == PhaseRunning {
		return false
	}
	e.tuning = t
	return true
}

// Start begins a new game. It does nothing and returns false if a game is running.
// Starting with no connected peers is allowed.
func (e *Engine) Start() bool {
	if e.phase == PhaseRunning {
		return false
	}

	e.stopLoops()
	e.state = State{
		Health:    e.tuning.MaxHealth,
		MaxHealth: e.tuning.MaxHealth,
		Targets:   []Target{},
		Running:   true,
	}
	e.phase = PhaseRunning
	e.lastBroadcastScore = 0
	e.dirty = false
	clear(e.expiry)
	clear(e.contributions)

	// The score loop is scheduled first so that on a shared deadline the score moves
	// before the tick decides whether the game is over.
	e.scoreTask = e.driver.Every(e.tuning.ScoreInterval, e.scoreTick)
	e.tickTask = e.driver.Every(e.tuning.TickInterval, e.tick)
	e.spawnTask = e.driver.Repeat(e.spawnDelay, e.spawn)

	e.emit(Event{Kind: EventGameStarted})
	e.broadcast()
	return true
}

// HandleInteraction claims targetID on behalf of originPeerID. Claims for targets that
// are already gone, from departed peers, or outside a running game are ignored.
func (e *Engine) HandleInteraction(targetID int, originPeerID string) bool {
	if e.phase != PhaseRunning {
		return false
	}
	if e.departed[originPeerID] {
		return false
	}

	i := slices.IndexFunc(e.state.Targets, func(t Target) bool { return t.ID == targetID })
	if i < 0 {
		return false
	}
	e.state.Targets = slices.Delete(e.state.Targets, i, i+1)
	delete(e.expiry, targetID)
	e.adjustHealth(e.tuning.HitGain)
	if originPeerID != "" {
		e.contributions[originPeerID]++
	}

	e.emit(Event{Kind: EventTargetClaimed, TargetID: targetID, PeerID: originPeerID})
	e.broadcast()
	return true
}

// PeerJoined makes a peer eligible for attribution again.
func (e *Engine) PeerJoined(peerID string) {
	delete(e.departed, peerID)
}

// PeerLeft excludes a peer from future attribution.
func (e *Engine) PeerLeft(peerID string) {
	e.departed[peerID] = true
	delete(e.contributions, peerID)
}

// Stop halts every loop and leaves the state as it is. It is safe to call repeatedly.
func (e *Engine) Stop() {
	e.stopLoops()
}

func (e *Engine) tick() {
	if e.phase != PhaseRunning {
		return
	}

	e.adjustHealth(-e.tuning.DrainPerTick)

	now := e.driver.Now()
	expired := false
	live := make([]Target, 0, len(e.state.Targets))
	for _, t := range e.state.Targets {
		t.Remaining = e.expiry[t.ID].Sub(now)
		if t.Remaining > 0 {
			live = append(live, t)
			continue
		}
		expired = true
		t.Remaining = 0
		delete(e.expiry, t.ID)
		e.adjustHealth(-e.tuning.MissPenalty)
		e.emit(Event{Kind: EventTargetExpired, TargetID: t.ID})
	}
	e.state.Targets = live

	if e.state.Health <= 0 {
		e.finish()
		return
	}

	if expired || e.dirty || e.state.Score != e.lastBroadcastScore {
		e.broadcast()
	}
}

func (e *Engine) scoreTick() {
	if e.phase != PhaseRunning {
		return
	}
	e.state.Score++
}

func (e *Engine) spawn() {
	if e.phase != PhaseRunning {
		return
	}

	e.nextID++
	span := 100 - 2*e.tuning.SpawnMargin
	t := Target{
		ID:        e.nextID,
		X:         e.tuning.SpawnMargin + e.rng.Float64()*span,
		Y:         e.tuning.SpawnMargin + e.rng.Float64()*span,
		Remaining: e.tuning.TargetLifetime,
		Lifetime:  e.tuning.TargetLifetime,
	}
	e.state.Targets = append(e.state.Targets, t)
	e.expiry[t.ID] = e.driver.Now().Add(t.Lifetime)
	e.dirty = true

	e.emit(Event{Kind: EventTargetSpawned, TargetID: t.ID})
}

func (e *Engine) spawnDelay() time.Duration {
	return e.tuning.SpawnDelay(e.state.Score)
}

func (e *Engine) finish() {
	e.phase = PhaseOver
	e.state.Running = false
	e.state.Over = true
	e.stopLoops()

	e.emit(Event{Kind: EventGameOver, Score: e.state.Score})
	e.broadcast()
	e.out.BroadcastGameOver(e.state.Score)
}

func (e *Engine) broadcast() {
	e.dirty = false
	e.lastBroadcastScore = e.state.Score
	e.out.BroadcastState(e.State())
}

func (e *Engine) adjustHealth(delta float64) {
	e.state.Health = clampHealth(e.state.Health+delta, e.tuning.MaxHealth)
}

func (e *Engine) stopLoops() {
	e.tickTask.Stop()
	e.scoreTask.Stop()
	e.spawnTask.Stop()
}

func (e *Engine) emit(ev Event) {
	for _, fn := range e.observers {
		fn(ev)
	}
}
