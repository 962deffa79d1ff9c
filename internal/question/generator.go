package question

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/errors"
)

const (
	// MaxFactor is the largest operand of a question.
	MaxFactor = 10
	// MaxQuestions is the size of the question universe.
	MaxQuestions = MaxFactor * MaxFactor
)

// universe holds every multiplication fact from 1x1 to 10x10 in row order.
var universe = func() []domain.Question {
	qs := make([]domain.Question, 0, MaxQuestions)
	for left := 1; left <= MaxFactor; left++ {
		for right := 1; right <= MaxFactor; right++ {
			qs = append(qs, domain.Question{
				ID:    ID(left, right),
				Left:  left,
				Right: right,
			})
		}
	}
	return qs
}()

// Rand is the source of randomness used for shuffling.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type Config struct {
	// Rand defaults to the process-wide source, which is safe for concurrent use.
	// A custom Rand must be safe for concurrent use if the generator is shared.
	Rand Rand
}

type Generator struct {
	rnd Rand
}

func NewGenerator(c Config) *Generator {
	g := &Generator{rnd: c.Rand}
	if g.rnd == nil {
		g.rnd = globalRand{}
	}
	return g
}

// Generate returns count distinct questions in random order.
func (g *Generator) Generate(count int) ([]domain.Question, error) {
	if count < 1 || count > MaxQuestions {
		return nil, errors.InvalidArgumentf("question count must be an integer between 1 and %d", MaxQuestions)
	}

	qs := Universe()
	// Fisher-Yates
	for i := len(qs) - 1; i > 0; i-- {
		j := g.rnd.IntN(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}

	return qs[:count:count], nil
}

// Universe returns a copy of all questions.
func Universe() []domain.Question {
	qs := make([]domain.Question, len(universe))
	copy(qs, universe)
	return qs
}

func ID(left, right int) string {
	return fmt.Sprintf("%dx%d", left, right)
}

// CorrectAnswer returns the product encoded in a question id.
func CorrectAnswer(questionID string) (int, error) {
	l, r, ok := strings.Cut(questionID, "x")
	if !ok {
		return 0, errors.InvalidArgumentf("malformed question id %q", questionID)
	}

	left, err := parseFactor(l)
	if err != nil {
		return 0, errors.InvalidArgumentf("malformed question id %q", questionID)
	}
	right, err := parseFactor(r)
	if err != nil {
		return 0, errors.InvalidArgumentf("malformed question id %q", questionID)
	}

	return left * right, nil
}

func parseFactor(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > MaxFactor {
		return 0, fmt.Errorf("factor %d out of range", n)
	}
	return n, nil
}
