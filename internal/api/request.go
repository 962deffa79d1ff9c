package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/errors"
)

// Clients send numbers either as JSON numbers or as numeric strings, so
// number fields are kept raw until they are interpreted.

type createSessionRequest struct {
	QuestionCount json.RawMessage `json:"questionCount"`
}

type completeSessionRequest struct {
	PlayerName string            `json:"playerName"`
	Answers    []json.RawMessage `json:"answers"`
}

type answerRequest struct {
	QuestionID json.RawMessage `json:"questionId"`
	Answer     json.RawMessage `json:"answer"`
}

// answers never fails: an entry that is not understood gets an empty question
// id, which the game rejects as an invalid question reference.
func (r completeSessionRequest) answers() []domain.Answer {
	as := make([]domain.Answer, 0, len(r.Answers))
	for _, raw := range r.Answers {
		var ar answerRequest
		_ = json.Unmarshal(raw, &ar)

		var id string
		_ = json.Unmarshal(ar.QuestionID, &id)

		v, ok := parseNumber(ar.Answer)
		if !ok {
			v = math.NaN()
		}

		as = append(as, domain.Answer{QuestionID: id, Value: v})
	}
	return as
}

// bindJSON decodes the request body into obj. An empty body leaves obj untouched.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && err != io.EOF {
		return errors.InvalidArgumentf("malformed request body")
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseNumber accepts a finite JSON number or a string holding one.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}

	var f float64
	if raw = bytes.TrimSpace(raw); raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}

		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
