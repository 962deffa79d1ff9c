package question_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/timestables/internal/errors"
	"github.com/victornm/timestables/internal/question"
)

func TestGenerator_Generate(t *testing.T) {
	g := question.NewGenerator(question.Config{})

	for count := 1; count <= question.MaxQuestions; count++ {
		qs, err := g.Generate(count)
		require.NoError(t, err)
		require.Len(t, qs, count)

		seen := make(map[string]bool, count)
		for _, q := range qs {
			require.False(t, seen[q.ID], "duplicate question %s for count %d", q.ID, count)
			seen[q.ID] = true

			require.Equal(t, question.ID(q.Left, q.Right), q.ID)
			require.GreaterOrEqual(t, q.Left, 1)
			require.LessOrEqual(t, q.Left, question.MaxFactor)
			require.GreaterOrEqual(t, q.Right, 1)
			require.LessOrEqual(t, q.Right, question.MaxFactor)
		}
	}
}

func TestGenerator_GenerateOutOfRange(t *testing.T) {
	g := question.NewGenerator(question.Config{})

	for _, count := range []int{-1, 0, question.MaxQuestions + 1} {
		_, err := g.Generate(count)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeInvalidArgument), "count %d", count)
	}
}

func TestGenerator_DeterministicWithSeededRand(t *testing.T) {
	gen := func() []string {
		g := question.NewGenerator(question.Config{Rand: rand.New(rand.NewPCG(1, 2))})
		qs, err := g.Generate(10)
		require.NoError(t, err)

		ids := make([]string, 0, len(qs))
		for _, q := range qs {
			ids = append(ids, q.ID)
		}
		return ids
	}

	assert.Equal(t, gen(), gen())
}

// firstRand always picks index 0, turning the shuffle into a fixed rotation.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

func TestGenerator_UsesInjectedRand(t *testing.T) {
	g := question.NewGenerator(question.Config{Rand: firstRand{}})

	qs, err := g.Generate(2)
	require.NoError(t, err)

	// Swapping each tail element with the head moves 1x2 to the front and 1x3 second.
	assert.Equal(t, "1x2", qs[0].ID)
	assert.Equal(t, "1x3", qs[1].ID)
}

func TestGenerator_DoesNotMutateUniverse(t *testing.T) {
	g := question.NewGenerator(question.Config{})
	_, err := g.Generate(question.MaxQuestions)
	require.NoError(t, err)

	u := question.Universe()
	require.Len(t, u, question.MaxQuestions)
	assert.Equal(t, "1x1", u[0].ID)
	assert.Equal(t, "10x10", u[len(u)-1].ID)
}

func TestCorrectAnswer(t *testing.T) {
	tests := map[string]struct {
		id      string
		want    int
		wantErr bool
	}{
		"smallest":            {id: "1x1", want: 1},
		"largest":             {id: "10x10", want: 100},
		"asymmetric":          {id: "7x8", want: 56},
		"missing separator":   {id: "78", wantErr: true},
		"non numeric":         {id: "ax2", wantErr: true},
		"factor out of range": {id: "11x2", wantErr: true},
		"zero factor":         {id: "0x5", wantErr: true},
		"empty":               {id: "", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := question.CorrectAnswer(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
