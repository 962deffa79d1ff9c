package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/victornm/timestables/internal/api"
	"github.com/victornm/timestables/internal/event"
	"github.com/victornm/timestables/internal/game"
	"github.com/victornm/timestables/internal/leaderboard"
	"github.com/victornm/timestables/internal/question"
	"github.com/victornm/timestables/internal/run"
	"github.com/victornm/timestables/internal/run/migrations"
	"github.com/victornm/timestables/internal/session"
	"github.com/victornm/timestables/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level string
	}

	// Redis is optional; without addresses no notifications are published.
	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	// Postgres is optional; without an address runs are kept in memory.
	Postgres PostgresConfig

	Quiz struct {
		DefaultQuestionCount int
		PageSize             int
		SessionTimeout       time.Duration
		SweepInterval        time.Duration
	}
}

type PostgresConfig struct {
	Addr string
	User string
	Pass string
	Name string
}

func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name)
}

// DefaultConfig returns the configuration used for every key that is neither
// in the config file nor in the environment.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Log.Level = "info"
	c.Redis.Prefix = "timestables"
	c.Quiz.DefaultQuestionCount = api.DefaultQuestionCount
	c.Quiz.PageSize = leaderboard.DefaultPageSize
	c.Quiz.SessionTimeout = time.Hour
	c.Quiz.SweepInterval = 15 * time.Minute
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	service struct {
		sessions    *session.Store
		runs        run.Repository
		game        *game.Service
		leaderboard *leaderboard.Service
	}

	stopSweep context.CancelFunc
	sweepDone chan struct{}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	if len(s.c.Redis.Addrs) == 0 {
		slog.Info("server: redis not configured, leaderboard notifications disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	if s.c.Postgres.Addr == "" {
		slog.Info("server: postgres not configured, runs are kept in memory")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Connect(ctx, s.c.Postgres)
	if err != nil {
		return err
	}

	if err := migrations.Run(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.infra.postgres = db
	return nil
}

// Connect opens a pgx pool and checks that the database is reachable.
func Connect(ctx context.Context, c PostgresConfig) (*pgxpool.Pool, error) {
	cc, err := pgxpool.ParseConfig(c.URL())
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (s *Server) initService() {
	if s.infra.postgres != nil {
		s.service.runs = run.NewPostgresRepository(s.infra.postgres)
	} else {
		s.service.runs = run.NewMemoryRepository()
	}

	s.service.sessions = session.NewStore(session.Config{
		Generator:     question.NewGenerator(question.Config{}),
		Timeout:       s.c.Quiz.SessionTimeout,
		SweepInterval: s.c.Quiz.SweepInterval,
	})

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	s.sweepDone = make(chan struct{})
	go func() {
		defer close(s.sweepDone)
		s.service.sessions.Run(sweepCtx)
	}()

	s.service.game = game.NewService(game.Config{
		EventBus: s.eb,
		Sessions: s.service.sessions,
		Runs:     s.service.runs,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Runs:     s.service.runs,
		Redis:    s.infra.redis,
		Prefix:   s.c.Redis.Prefix,
		PageSize: s.c.Quiz.PageSize,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.Use(gin.Recovery(), telemetry.HTTPLogger(), telemetry.HTTPMetrics())
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = telemetry.RegisterHealth(s.grpc)

	ac := api.Config{
		Router:               e,
		EventBus:             s.eb,
		Game:                 s.service.game,
		Leaderboard:          s.service.leaderboard,
		PubsubPrefix:         s.c.Redis.Prefix,
		DefaultQuestionCount: s.c.Quiz.DefaultQuestionCount,
	}
	// keep the interface nil when redis is not configured
	if s.infra.redis != nil {
		ac.Redis = s.infra.redis
	}
	api.New(ac)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.stopSweep()
	<-s.sweepDone

	// handlers may still be publishing to redis or reading runs
	s.eb.Stop()

	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}
	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
