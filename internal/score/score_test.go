package score_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/score"
)

func TestCompute(t *testing.T) {
	type inputs struct {
		questionCount  int
		correctCount   int
		elapsedSeconds float64
	}

	tests := map[string]struct {
		in   inputs
		want domain.ScoreBreakdown
	}{
		"no mistakes under the limit earns the time bonus": {
			in:   inputs{questionCount: 10, correctCount: 10, elapsedSeconds: 30},
			want: domain.ScoreBreakdown{Score: 160, BasePoints: 100, FloorScore: 30, TimeBonus: 60, TimeLimitSeconds: 60},
		},
		"mistakes forfeit the time bonus": {
			in:   inputs{questionCount: 10, correctCount: 8, elapsedSeconds: 30},
			want: domain.ScoreBreakdown{Score: 80, BasePoints: 80, FloorScore: 24, TimeBonus: 0, TimeLimitSeconds: 60},
		},
		"over the limit falls back to the floor score": {
			in:   inputs{questionCount: 10, correctCount: 10, elapsedSeconds: 65},
			want: domain.ScoreBreakdown{Score: 30, BasePoints: 100, FloorScore: 30, TimeBonus: 0, TimeLimitSeconds: 60},
		},
		"exactly at the limit gets no bonus": {
			in:   inputs{questionCount: 10, correctCount: 10, elapsedSeconds: 60},
			want: domain.ScoreBreakdown{Score: 30, BasePoints: 100, FloorScore: 30, TimeBonus: 0, TimeLimitSeconds: 60},
		},
		"no correct answers scores zero": {
			in:   inputs{questionCount: 5, correctCount: 0, elapsedSeconds: 10},
			want: domain.ScoreBreakdown{Score: 0, BasePoints: 0, FloorScore: 0, TimeBonus: 0, TimeLimitSeconds: 30},
		},
		"zero questions scores zero": {
			in:   inputs{questionCount: 0, correctCount: 0, elapsedSeconds: 0},
			want: domain.ScoreBreakdown{Score: 0, BasePoints: 0, FloorScore: 0, TimeBonus: 0, TimeLimitSeconds: 0},
		},
		"fractional remaining time is floored": {
			in:   inputs{questionCount: 1, correctCount: 1, elapsedSeconds: 2.3},
			want: domain.ScoreBreakdown{Score: 17, BasePoints: 10, FloorScore: 3, TimeBonus: 7, TimeLimitSeconds: 6},
		},
		"floor of thirty percent is exact": {
			in:   inputs{questionCount: 100, correctCount: 77, elapsedSeconds: 700},
			want: domain.ScoreBreakdown{Score: 231, BasePoints: 770, FloorScore: 231, TimeBonus: 0, TimeLimitSeconds: 600},
		},
		"NaN elapsed earns no bonus": {
			in:   inputs{questionCount: 2, correctCount: 2, elapsedSeconds: math.NaN()},
			want: domain.ScoreBreakdown{Score: 6, BasePoints: 20, FloorScore: 6, TimeBonus: 0, TimeLimitSeconds: 12},
		},
		"negative infinity elapsed earns no bonus": {
			in:   inputs{questionCount: 2, correctCount: 2, elapsedSeconds: math.Inf(-1)},
			want: domain.ScoreBreakdown{Score: 6, BasePoints: 20, FloorScore: 6, TimeBonus: 0, TimeLimitSeconds: 12},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := score.Compute(tt.in.questionCount, tt.in.correctCount, tt.in.elapsedSeconds)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Score, got.FloorScore)

			// pure: same inputs, same output
			assert.Equal(t, got, score.Compute(tt.in.questionCount, tt.in.correctCount, tt.in.elapsedSeconds))
		})
	}
}

func TestTimeLimit(t *testing.T) {
	assert.Equal(t, 0, score.TimeLimit(0))
	assert.Equal(t, 6, score.TimeLimit(1))
	assert.Equal(t, 600, score.TimeLimit(100))
}
