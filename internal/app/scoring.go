package app

import "time"

// Scoring bounds for a correct answer. Awards decay linearly with elapsed
// time from maxAward down to minAward; an incorrect answer always awards 0.
const (
	minAward = 600
	maxAward = 1000

	// decayMillisPerPoint controls how fast the award drops: one point per
	// 35ms puts the floor at 14s after the question opened.
	decayMillisPerPoint = 35
)

// awardPoints computes the score delta for a submission. Pure function of
// (correct, elapsed); returns either 0 or a value in [minAward, maxAward].
func awardPoints(correct bool, elapsed time.Duration) int {
	if !correct {
		return 0
	}
	award := maxAward - int(elapsed.Milliseconds()/decayMillisPerPoint)
	if award > maxAward {
		award = maxAward
	}
	if award < minAward {
		award = minAward
	}
	return award
}
