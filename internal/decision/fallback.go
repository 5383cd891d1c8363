package decision

import (
	"math/rand"

	"github.com/llmholdem/server/internal/persona"
)

// fallbackProfile is a simplified CPU-opponent profile table, in the idiom
// of a classic rule-based AI profile: per-difficulty thresholds on hand
// strength (here approximated by equity) for entering/raising a pot, a
// bluff frequency, and an aggression factor governing bet sizing.
type fallbackProfile struct {
	PlayThreshold      float64
	RaiseThreshold     float64
	BluffFrequency     float64
	AggressionFactor   float64
	MinRaiseMultiplier float64
	MaxRaiseMultiplier float64
}

var fallbackProfiles = map[persona.Difficulty]fallbackProfile{
	persona.Easy: {
		PlayThreshold:      0.45,
		RaiseThreshold:     0.70,
		BluffFrequency:     0.03,
		AggressionFactor:   0.8,
		MinRaiseMultiplier: 2.0,
		MaxRaiseMultiplier: 2.5,
	},
	persona.Medium: {
		PlayThreshold:      0.38,
		RaiseThreshold:     0.62,
		BluffFrequency:     0.10,
		AggressionFactor:   1.1,
		MinRaiseMultiplier: 2.0,
		MaxRaiseMultiplier: 3.0,
	},
	persona.Hard: {
		PlayThreshold:      0.32,
		RaiseThreshold:     0.55,
		BluffFrequency:     0.18,
		AggressionFactor:   1.4,
		MinRaiseMultiplier: 2.2,
		MaxRaiseMultiplier: 3.5,
	},
}

// Fallback produces a bounded rule-based decision when the LLM is
// unavailable or returns unparseable content. It always obeys rule (1) of
// the validation pipeline ("never fold when check is free") via the caller,
// which re-runs validate() on whatever this returns.
func Fallback(difficulty persona.Difficulty, legal []LegalAction, a Analysis, rng *rand.Rand) (ActionTag, int64) {
	profile, ok := fallbackProfiles[difficulty]
	if !ok {
		profile = fallbackProfiles[persona.Medium]
	}

	freeCheck, callAmount, raiseMin, raiseMax, _, hasRaise := summarizeLegal(legal)

	if freeCheck {
		if a.Equity >= profile.RaiseThreshold && hasRaise && raiseMax > 0 {
			return Raise, sizeRaise(profile, raiseMin, raiseMax)
		}
		if rng.Float64() < profile.BluffFrequency && hasRaise && raiseMax > 0 {
			return Raise, sizeRaise(profile, raiseMin, raiseMax)
		}
		return Call, 0
	}

	if a.Equity < profile.PlayThreshold && rng.Float64() >= profile.BluffFrequency {
		return Fold, 0
	}

	if a.Equity >= profile.RaiseThreshold && hasRaise && raiseMax > 0 {
		return Raise, sizeRaise(profile, raiseMin, raiseMax)
	}

	return Call, callAmount
}

func sizeRaise(profile fallbackProfile, min, max int64) int64 {
	span := float64(max - min)
	amount := min + int64(span*(profile.AggressionFactor/(profile.AggressionFactor+1)))
	if amount < min {
		amount = min
	}
	if amount > max {
		amount = max
	}
	return amount
}
