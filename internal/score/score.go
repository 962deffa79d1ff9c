package score

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/victornm/timestables/internal/domain"
)

const (
	SecondsPerQuestion = 6
	PointsPerCorrect   = 10
)

var (
	floorMultiplier = decimal.RequireFromString("0.3")
	bonusMultiplier = decimal.NewFromInt(2)
)

// TimeLimit returns the time budget, in seconds, for a run of questionCount questions.
func TimeLimit(questionCount int) int {
	return questionCount * SecondsPerQuestion
}

// Compute returns the score breakdown of a completed run.
//
// Every correct answer is worth PointsPerCorrect. A run finished under the time
// limit without mistakes earns two points per remaining second. The score never
// drops below 30% of the base points. Arithmetic is exact, so 0.3 of a base is
// never rounded down below its true value.
//
// Compute is pure and total: a non-finite elapsed time earns no bonus.
// Negative elapsed times are expected to be clamped by the caller.
func Compute(questionCount, correctCount int, elapsedSeconds float64) domain.ScoreBreakdown {
	timeLimit := TimeLimit(questionCount)
	basePoints := correctCount * PointsPerCorrect
	floorScore := int(decimal.NewFromInt(int64(basePoints)).Mul(floorMultiplier).Floor().IntPart())

	b := domain.ScoreBreakdown{
		Score:            floorScore,
		BasePoints:       basePoints,
		FloorScore:       floorScore,
		TimeLimitSeconds: timeLimit,
	}

	if math.IsInf(elapsedSeconds, 0) || !(elapsedSeconds < float64(timeLimit)) {
		return b
	}

	rawBonus := decimal.NewFromInt(int64(timeLimit)).
		Sub(decimal.NewFromFloat(elapsedSeconds)).
		Mul(bonusMultiplier).
		Floor().
		IntPart()
	rawBonus = max(rawBonus, 0)

	if correctCount == questionCount {
		b.TimeBonus = int(rawBonus)
	}
	b.Score = max(basePoints+b.TimeBonus, floorScore)

	return b
}
