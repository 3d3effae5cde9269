package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/edupulse/arena/internal/api"
	"github.com/edupulse/arena/internal/directory"
	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/duel"
	"github.com/edupulse/arena/internal/event"
	"github.com/edupulse/arena/internal/gate"
	"github.com/edupulse/arena/internal/matchmaking"
	"github.com/edupulse/arena/internal/questions"
	"github.com/edupulse/arena/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Auth struct {
		Secret string
	}

	Game struct {
		QuestionsPerDuel int
		StartDelay       time.Duration
		RoundBudget      time.Duration
		RoundPause       time.Duration
		BotWait          time.Duration
	}

	Questions struct {
		// GeneratorURL points at the question-generation collaborator.
		// Empty runs the built-in drill set, for local development only.
		GeneratorURL string
		CacheTTL     time.Duration
	}

	Redis struct {
		Questions struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		// Directory is the platform database holding user profiles. Empty
		// falls back to an empty in-memory directory, which rejects everyone.
		Directory struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	service struct {
		hub   *api.Hub
		gate  *gate.Gate
		queue *matchmaking.Queue
		duels *duel.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Auth.Secret == "" {
		return nil, fmt.Errorf("server: auth secret is required")
	}

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
	if len(s.c.Redis.Questions.Addrs) == 0 {
		slog.Info("server: no redis configured, question cache disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Questions.Addrs,
		Password: s.c.Redis.Questions.Pass,
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
	pg := s.c.Postgres.Directory
	if pg.Addr == "" {
		slog.Warn("server: no directory database configured, using empty in-memory directory")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pg.User, pg.Pass, pg.Addr, pg.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	s.service.hub = api.NewHub()

	var dir gate.Directory
	if s.infra.postgres != nil {
		dir = directory.NewPostgres(s.infra.postgres)
	} else {
		dir = directory.NewStatic()
	}

	s.service.gate = gate.New(gate.Config{
		Secret:    []byte(s.c.Auth.Secret),
		Directory: dir,
	})

	var source questions.Source
	if s.c.Questions.GeneratorURL != "" {
		source = questions.NewHTTPSource(s.c.Questions.GeneratorURL)
	} else {
		slog.Warn("server: no question generator configured, using built-in drill set")
		source = questions.NewStaticSource(s.c.Game.QuestionsPerDuel + duel.DefaultQuestionsPerDuel)
	}
	if s.infra.redis != nil {
		source = questions.NewCachedSource(questions.CacheConfig{
			Inner:  source,
			Redis:  s.infra.redis,
			Prefix: s.c.Redis.Questions.Prefix,
			TTL:    s.c.Questions.CacheTTL,
		})
	}

	s.service.duels = duel.NewService(duel.Config{
		Source:    source,
		Messenger: s.service.hub,
		EventBus:  s.eb,
		Requeue: func(id domain.Identity) {
			s.service.queue.Enqueue(id)
		},
		QuestionsPerDuel: s.c.Game.QuestionsPerDuel,
		StartDelay:       s.c.Game.StartDelay,
		RoundBudget:      s.c.Game.RoundBudget,
		RoundPause:       s.c.Game.RoundPause,
	})

	s.service.queue = matchmaking.NewQueue(matchmaking.Config{
		BotWait:  s.c.Game.BotWait,
		EventBus: s.eb,
		OnPair:   s.service.duels.StartMatch,
	})

	telemetry.MonitorGame(s.eb,
		s.service.queue.Waiting,
		s.service.duels.Active,
		s.service.hub.Connected,
	)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Gate:  s.service.gate,
		Queue: s.service.queue,
		Duels: s.service.duels,
		Hub:   s.service.hub,
	}).Register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.service.queue.Close()
	s.eb.Stop()

	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}
	if s.infra.redis != nil {
		s.infra.redis.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
