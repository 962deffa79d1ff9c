// Package api exposes the quiz over HTTP and forwards leaderboard changes to
// Redis pub/sub subscribers.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/errors"
	"github.com/victornm/timestables/internal/event"
	"github.com/victornm/timestables/internal/game"
	"github.com/victornm/timestables/internal/leaderboard"
	"github.com/victornm/timestables/internal/question"
	"github.com/victornm/timestables/internal/score"
)

const DefaultQuestionCount = 10

type Config struct {
	Router      gin.IRouter
	EventBus    *event.Bus
	Game        *game.Service
	Leaderboard *leaderboard.Service

	// Redis is optional. Without it no notifications are published.
	Redis        Redis
	PubsubPrefix string

	DefaultQuestionCount int
	Now                  func() time.Time
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	gs *game.Service
	ls *leaderboard.Service

	redis  Redis
	prefix string

	defaultQuestionCount int
	now                  func() time.Time
}

func New(c Config) *API {
	a := &API{
		gs:                   c.Game,
		ls:                   c.Leaderboard,
		redis:                c.Redis,
		prefix:               c.PubsubPrefix,
		defaultQuestionCount: c.DefaultQuestionCount,
		now:                  c.Now,
	}
	if a.defaultQuestionCount <= 0 {
		a.defaultQuestionCount = DefaultQuestionCount
	}
	if a.now == nil {
		a.now = time.Now
	}

	// HTTP APIs
	g := c.Router.Group("/api")
	g.GET("/health", a.Health)
	g.GET("/config", a.GetConfig)
	g.POST("/sessions", a.CreateSession)
	g.POST("/sessions/:sessionId/complete", a.CompleteSession)
	g.GET("/leaderboard", a.GetLeaderboard)
	g.GET("/runs/:id", a.GetRun)
	g.GET("/score/preview", a.PreviewScore)

	// Register event handlers
	if c.EventBus != nil && a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
		})
		c.EventBus.Subscribe(domain.EventNameRunCompleted, func(ctx context.Context, e event.Event) error {
			return a.PublishRunCompleted(ctx, e.(domain.EventRunCompleted))
		})
	}

	return a
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": a.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (a *API) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"maxQuestions":         question.MaxQuestions,
		"defaultQuestionCount": a.defaultQuestionCount,
	})
}

func (a *API) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	n := a.defaultQuestionCount
	if !isNull(req.QuestionCount) {
		v, ok := parseNumber(req.QuestionCount)
		if !ok || v != float64(int(v)) {
			writeError(c, errors.InvalidArgumentf("questionCount must be an integer between 1 and %d", question.MaxQuestions))
			return
		}
		n = int(v)
	}

	v, err := a.gs.StartSession(c.Request.Context(), game.StartSessionRequest{QuestionCount: n})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

func (a *API) CompleteSession(c *gin.Context) {
	id := c.Param("sessionId")

	var req completeSessionRequest
	if err := bindJSON(c, &req); err != nil {
		// an unknown session wins over a malformed body
		if !a.gs.SessionActive(id) {
			err = errors.NotFoundf("session not found or expired: %s", id)
		}
		writeError(c, err)
		return
	}

	res, err := a.gs.CompleteSession(c.Request.Context(), game.CompleteSessionRequest{
		SessionID:  id,
		PlayerName: req.PlayerName,
		Answers:    req.answers(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (a *API) GetLeaderboard(c *gin.Context) {
	// an unparsable page falls back to the first one
	page, _ := strconv.Atoi(c.Query("page"))

	p, err := a.ls.List(c.Request.Context(), leaderboard.ListRequest{
		Page:   page,
		Search: c.Query("search"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (a *API) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, errors.InvalidArgumentf("invalid run id: %q", c.Param("id")))
		return
	}

	r, err := a.ls.GetRun(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// PreviewScore computes a score breakdown without touching any session.
func (a *API) PreviewScore(c *gin.Context) {
	questionCount, err1 := strconv.Atoi(c.Query("questionCount"))
	correctCount, err2 := strconv.Atoi(c.Query("correctCount"))
	elapsed, err3 := strconv.ParseFloat(strings.TrimSpace(c.Query("elapsedSeconds")), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(c, errors.InvalidArgumentf("questionCount, correctCount and elapsedSeconds are required numbers"))
		return
	}

	if questionCount < 1 || questionCount > question.MaxQuestions {
		writeError(c, errors.InvalidArgumentf("questionCount must be between 1 and %d", question.MaxQuestions))
		return
	}
	if correctCount < 0 || correctCount > questionCount {
		writeError(c, errors.InvalidArgumentf("correctCount must be between 0 and questionCount"))
		return
	}

	c.JSON(http.StatusOK, score.Compute(questionCount, correctCount, max(elapsed, 0)))
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)

	msg := e.Message
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		msg = "internal error, please try again"
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": msg})
}
