package game

import (
	"fmt"
	"math"
	"time"

	"github.com/pixil98/go-errors"
)

// Tuning holds every constant that shapes a game. All durations are in real time.
type Tuning struct {
	TickInterval  time.Duration
	ScoreInterval time.Duration

	MaxHealth    float64
	DrainPerTick float64
	MissPenalty  float64
	HitGain      float64

	BaseSpawnDelay     time.Duration
	MinSpawnDelay      time.Duration
	SpawnDecayPerPoint time.Duration
	TargetLifetime     time.Duration

	// SpawnMargin keeps targets away from the edges, in percent of each axis.
	SpawnMargin float64
}

// DefaultTuning drains roughly one point of health per second.
func DefaultTuning() Tuning {
	return Tuning{
		TickInterval:       100 * time.Millisecond,
		ScoreInterval:      time.Second,
		MaxHealth:          100,
		DrainPerTick:       0.1,
		MissPenalty:        10,
		HitGain:            5,
		BaseSpawnDelay:     2 * time.Second,
		MinSpawnDelay:      500 * time.Millisecond,
		SpawnDecayPerPoint: 20 * time.Millisecond,
		TargetLifetime:     5 * time.Second,
		SpawnMargin:        10,
	}
}

// SpawnDelay is the wait before the next target at the given score. It never increases
// with score and never drops below MinSpawnDelay.
func (t Tuning) SpawnDelay(score int) time.Duration {
	if score <= 0 || t.SpawnDecayPerPoint <= 0 {
		return t.BaseSpawnDelay
	}
	steps := (t.BaseSpawnDelay - t.MinSpawnDelay) / t.SpawnDecayPerPoint
	if time.Duration(score) >= steps {
		return t.MinSpawnDelay
	}
	return max(t.BaseSpawnDelay-time.Duration(score)*t.SpawnDecayPerPoint, t.MinSpawnDelay)
}

func (t Tuning) Validate() error {
	el := errors.NewErrorList()

	if t.TickInterval <= 0 {
		el.Add(fmt.Errorf("tick_interval must be positive"))
	}
	if t.ScoreInterval <= 0 {
		el.Add(fmt.Errorf("score_interval must be positive"))
	}
	if t.MaxHealth <= 0 {
		el.Add(fmt.Errorf("max_health must be positive"))
	}
	if t.DrainPerTick < 0 || t.MissPenalty < 0 || t.HitGain < 0 {
		el.Add(fmt.Errorf("drain_per_tick, miss_penalty and hit_gain must not be negative"))
	}
	if t.MinSpawnDelay <= 0 {
		el.Add(fmt.Errorf("min_spawn_delay must be positive"))
	}
	if t.BaseSpawnDelay < t.MinSpawnDelay {
		el.Add(fmt.Errorf("base_spawn_delay must be at least min_spawn_delay"))
	}
	if t.SpawnDecayPerPoint < 0 {
		el.Add(fmt.Errorf("spawn_decay_per_point must not be negative"))
	}
	if t.TargetLifetime <= 0 {
		el.Add(fmt.Errorf("target_lifetime must be positive"))
	}
	if t.SpawnMargin < 0 || t.SpawnMargin >= 50 {
		el.Add(fmt.Errorf("spawn_margin must be in [0, 50)"))
	}

	return el.Err()
}

// clampHealth rounds to a thousandth so repeated fractional drains land exactly on
// zero, then clamps into [0, max].
func clampHealth(h, maxHealth float64) float64 {
	h = math.Round(h*1000) / 1000
	return math.Min(math.Max(h, 0), maxHealth)
}
