// Package scoring implements the duel scoring engine. It is a pure function
// of the answer outcome so it can be tested exhaustively on its own.
package scoring

const (
	// BasePoints is awarded for any correct answer before bonuses.
	BasePoints = 10
	// WrongPenalty is the delta for a submitted wrong answer. The session
	// clamps the cumulative score at zero, not the engine.
	WrongPenalty = -5
	// StreakThreshold is the streak length at which the multiplier kicks in.
	StreakThreshold = 3
	// StreakMultiplier doubles the subtotal while the streak is hot.
	StreakMultiplier = 2
)

// Score returns the points delta and the new streak for one submitted answer.
//
// A wrong answer costs WrongPenalty and resets the streak. A correct answer
// earns BasePoints plus half the remaining seconds (rounded down). Once a
// player's standing streak has reached StreakThreshold the subtotal is
// doubled, starting with the answer after the one that completed the streak.
func Score(correct bool, secondsRemaining, streakBefore int) (delta, newStreak int) {
	if !correct {
		return WrongPenalty, 0
	}

	if secondsRemaining < 0 {
		secondsRemaining = 0
	}

	subtotal := BasePoints + secondsRemaining/2
	newStreak = streakBefore + 1
	if streakBefore >= StreakThreshold {
		return subtotal * StreakMultiplier, newStreak
	}

	return subtotal, newStreak
}

// ClampScore floors a cumulative score at zero. Applied by the session after
// every accumulation so the reported total is never negative.
func ClampScore(total int) int {
	if total < 0 {
		return 0
	}
	return total
}
