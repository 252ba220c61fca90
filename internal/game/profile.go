package game

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

// Profile is a tuning preset stored as a JSON asset. Unset fields keep the value from
// DefaultTuning.
type Profile struct {
	Name               string   `json:"name"`
	TickInterval       string   `json:"tick_interval,omitempty"`
	ScoreInterval      string   `json:"score_interval,omitempty"`
	MaxHealth          float64  `json:"max_health,omitempty"`
	DrainPerTick       *float64 `json:"drain_per_tick,omitempty"`
	MissPenalty        *float64 `json:"miss_penalty,omitempty"`
	HitGain            *float64 `json:"hit_gain,omitempty"`
	BaseSpawnDelay     string   `json:"base_spawn_delay,omitempty"`
	MinSpawnDelay      string   `json:"min_spawn_delay,omitempty"`
	SpawnDecayPerPoint string   `json:"spawn_decay_per_point,omitempty"`
	TargetLifetime     string   `json:"target_lifetime,omitempty"`
	SpawnMargin        *float64 `json:"spawn_margin,omitempty"`
}

// ProfileKind is the asset kind of tuning profiles.
const ProfileKind = "tuning-profile"

// Selector is the label shown when choosing a profile.
func (p *Profile) Selector() string {
	if p.Name == "" {
		return "unnamed"
	}
	return p.Name
}

// Validate satisfies storage.ValidatingSpec.
func (p *Profile) Validate() error {
	_, err := p.Tuning()
	return err
}

// Tuning applies the profile on top of DefaultTuning.
func (p *Profile) Tuning() (Tuning, error) {
	t := DefaultTuning()
	el := errors.NewErrorList()

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"tick_interval", p.TickInterval, &t.TickInterval},
		{"score_interval", p.ScoreInterval, &t.ScoreInterval},
		{"base_spawn_delay", p.BaseSpawnDelay, &t.BaseSpawnDelay},
		{"min_spawn_delay", p.MinSpawnDelay, &t.MinSpawnDelay},
		{"spawn_decay_per_point", p.SpawnDecayPerPoint, &t.SpawnDecayPerPoint},
		{"target_lifetime", p.TargetLifetime, &t.TargetLifetime},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", d.name, err))
			continue
		}
		*d.dst = v
	}

	if p.MaxHealth != 0 {
		t.MaxHealth = p.MaxHealth
	}
	if p.DrainPerTick != nil {
		t.DrainPerTick = *p.DrainPerTick
	}
	if p.MissPenalty != nil {
		t.MissPenalty = *p.MissPenalty
	}
	if p.HitGain != nil {
		t.HitGain = *p.HitGain
	}
	if p.SpawnMargin != nil {
		t.SpawnMargin = *p.SpawnMargin
	}

	if err := el.Err(); err != nil {
		return Tuning{}, err
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}
