package app

import (
	"fmt"
	"math"
)

// ScoringMode selects how the time budget contributes to a question's score.
type ScoringMode string

const (
	// ModeTimeDecay awards floor + budget*scale minus wrong-attempt penalties.
	ModeTimeDecay ScoringMode = "time_decay"
	// ModeFlat awards floor + scale minus wrong-attempt penalties, ignoring time.
	ModeFlat ScoringMode = "flat"
)

// ScoringPolicy holds the constants of one quiz variant.
type ScoringPolicy struct {
	Mode             ScoringMode
	FloorScore       float64
	Scale            float64
	PerWrongPenalty  float64
	GracePeriodTicks int
	// TotalTicks is the per-question duration; each tick decays the budget by 1/TotalTicks.
	TotalTicks int
}

// DefaultPolicy is the 60-tick time-weighted variant: 40 points floor, up to 60 for speed.
func DefaultPolicy() ScoringPolicy {
	return ScoringPolicy{
		Mode:       ModeTimeDecay,
		FloorScore: 40,
		Scale:      60,
		TotalTicks: 60,
	}
}

// SprintPolicy is the 15-tick variant with a one-tick grace period before time counts.
func SprintPolicy() ScoringPolicy {
	return ScoringPolicy{
		Mode:             ModeTimeDecay,
		FloorScore:       0,
		Scale:            100,
		PerWrongPenalty:  10,
		GracePeriodTicks: 1,
		TotalTicks:       15,
	}
}

// FlatPolicy subtracts a fixed penalty per wrong attempt from a 100 point baseline.
func FlatPolicy() ScoringPolicy {
	return ScoringPolicy{
		Mode:            ModeFlat,
		FloorScore:      40,
		Scale:           60,
		PerWrongPenalty: 5,
		TotalTicks:      60,
	}
}

// PolicyByName resolves a configured preset name. Empty selects the default.
func PolicyByName(name string) (ScoringPolicy, error) {
	switch name {
	case "", "default":
		return DefaultPolicy(), nil
	case "sprint":
		return SprintPolicy(), nil
	case "flat":
		return FlatPolicy(), nil
	}
	return ScoringPolicy{}, fmt.Errorf("unknown scoring policy %q", name)
}

func (p ScoringPolicy) Validate() error {
	switch p.Mode {
	case ModeTimeDecay, ModeFlat:
	default:
		return fmt.Errorf("unknown scoring mode %q", p.Mode)
	}
	if p.TotalTicks <= 0 {
		return fmt.Errorf("total ticks must be positive, got %d", p.TotalTicks)
	}
	if p.FloorScore < 0 || p.Scale < 0 || p.PerWrongPenalty < 0 {
		return fmt.Errorf("scoring constants must not be negative")
	}
	if p.GracePeriodTicks < 0 || p.GracePeriodTicks >= p.TotalTicks {
		return fmt.Errorf("grace period must be within [0, %d), got %d", p.TotalTicks, p.GracePeriodTicks)
	}
	return nil
}

// Score computes the score for a time budget in [0, 1] and a count of distinct wrong answers.
func (p ScoringPolicy) Score(timeBudget float64, wrong int) float64 {
	budget := math.Min(1, math.Max(0, timeBudget))
	bonus := p.Scale
	if p.Mode == ModeTimeDecay {
		bonus = budget * p.Scale
	}
	raw := p.FloorScore + bonus - float64(wrong)*p.PerWrongPenalty
	return math.Max(p.FloorScore, raw)
}
