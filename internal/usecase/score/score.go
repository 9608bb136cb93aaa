// Package score implements the shared confidence formula. Every route uses
// this one scorer; there are no per-tool variants.
package score

import "math"

// Weights of the confidence formula. Structured evidence is inherently more
// trustworthy than embedding retrieval for exact facts, corroboration from
// the other path raises trust with diminishing returns, and a detected
// conflict is penalized rather than hidden.
const (
	BaseStructured   = 0.9
	BaseSemanticOnly = 0.6

	CorroborationBonus = 0.03
	CorroborationCap   = 0.15
	RecordBonus        = 0.02
	RecordBonusCap     = 0.06

	ConflictPenalty = 0.10

	// MaxConfidence keeps the engine from ever claiming certainty.
	MaxConfidence = 0.99
)

// Confidence computes the calibrated confidence for one route's evidence.
// numCorroborating is the count of corroborating passages, not of
// corroborated records: two passages backing one record earn two bonuses.
// It is deterministic and pure:
//
//	base = 0.9 if structured hit else 0.6 if semantic-only else 0.0
//	bonus = min(0.03*corroborating, 0.15) + min(0.02*max(records-1, 0), 0.06)
//	penalty = 0.10 if conflict
//	result = clamp(base + bonus - penalty, 0.0, 0.99)
func Confidence(numRecords, numCorroborating int, hasSemanticHit, hasConflict bool) float64 {
	var base float64
	switch {
	case numRecords > 0:
		base = BaseStructured
	case hasSemanticHit:
		base = BaseSemanticOnly
	default:
		return 0
	}

	bonus := math.Min(CorroborationBonus*float64(numCorroborating), CorroborationCap)
	bonus += math.Min(RecordBonus*float64(maxInt(numRecords-1, 0)), RecordBonusCap)

	var penalty float64
	if hasConflict {
		penalty = ConflictPenalty
	}

	return clamp(base+bonus-penalty, 0, MaxConfidence)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
