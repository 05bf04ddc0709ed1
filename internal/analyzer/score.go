package analyzer

import (
	"fmt"
	"time"
)

// Scoring tunables. The factor structure is fixed; the point values are
// policy defaults and may be recalibrated without touching the algorithm.
const (
	// ScoreNeverCalled is reserved for endpoints with zero observed calls.
	ScoreNeverCalled = 100

	// ScoreMaxUsed caps every endpoint that has at least one call.
	ScoreMaxUsed = 99

	// Frequency factor: calls below this threshold count as very low.
	lowCallThreshold = 5
	pointsOneCall    = 40
	pointsTwoCalls   = 30
	pointsFewCalls   = 20 // 3-4 calls

	// Recency factor: staleness past each breakpoint adds points.
	pointsOverOneYear    = 25
	pointsOverSixMonths  = 20
	pointsOverQuarter  = 15
	pointsOverMonth      = 10
	recentActivityDays   = 7
	daysPerYear          = 365
	daysPerSixMonths     = 180
	daysPerQuarter       = 90
	daysPerMonth         = 30

	// Independent bonuses.
	pointsCalledOnce   = 15
	pointsSingleCaller = 10
)

// Score maps one endpoint's usage to a 0-100 "likely unused" confidence and
// an ordered list of human-readable reasons. It is pure: the same stat and
// reference time always produce the same output.
//
// Zero calls short-circuits to 100. Otherwise independent factors are
// evaluated in a fixed order (frequency, recency, single-use, caller
// diversity), each adding points and a reason when triggered; the sum is
// clamped to [0, 99] so 100 stays exclusive to never-called endpoints.
func Score(stat UsageStat, reference time.Time) (int, []string) {
	if stat.CallCount == 0 {
		return ScoreNeverCalled, []string{"Never called in logs"}
	}

	confidence := 0
	var reasons []string

	// Frequency: the fewer the calls, the higher the contribution.
	if stat.CallCount < lowCallThreshold {
		switch stat.CallCount {
		case 1:
			confidence += pointsOneCall
			reasons = append(reasons, "Very low call count (1 call)")
		case 2:
			confidence += pointsTwoCalls
			reasons = append(reasons, "Very low call count (2 calls)")
		default:
			confidence += pointsFewCalls
			reasons = append(reasons, fmt.Sprintf("Very low call count (%d calls)", stat.CallCount))
		}
	}

	// Recency: staleness adds points, freshness only adds a note.
	if stat.LastSeen != nil {
		days := daysBetween(*stat.LastSeen, reference)
		switch {
		case days > daysPerYear:
			confidence += pointsOverOneYear
			reasons = append(reasons, fmt.Sprintf("Last seen %d days ago (>1 year)", days))
		case days > daysPerSixMonths:
			confidence += pointsOverSixMonths
			reasons = append(reasons, fmt.Sprintf("Last seen %d days ago (>6 months)", days))
		case days > daysPerQuarter:
			confidence += pointsOverQuarter
			reasons = append(reasons, fmt.Sprintf("Last seen %d days ago (>3 months)", days))
		case days > daysPerMonth:
			confidence += pointsOverMonth
			reasons = append(reasons, fmt.Sprintf("Last seen %d days ago (>1 month)", days))
		case days <= recentActivityDays:
			reasons = append(reasons, fmt.Sprintf("Recently active (%d days ago)", days))
		}
	}

	// Single use stacks on top of the frequency factor.
	if stat.CallCount == 1 {
		confidence += pointsCalledOnce
		reasons = append(reasons, "Called only once")
	}

	// Caller diversity: one distinct caller is a removal-friendly signal.
	if stat.UniqueCallers() == 1 {
		confidence += pointsSingleCaller
		reasons = append(reasons, "Single caller dependency")
	}

	if confidence > ScoreMaxUsed {
		confidence = ScoreMaxUsed
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence, reasons
}

// daysBetween returns whole days from a to b, floored, never negative.
func daysBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}
