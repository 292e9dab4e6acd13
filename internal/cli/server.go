package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/config"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/memory"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/postgres"
	infraredis "github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/redis"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/logger"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/metrics"
	transport "github.com/NikitaKuzlyaev/GridArena-sub000/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the arena server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed-demo", false, "insert the demo contest into postgres on start (always on for the in-memory store)")
	return cmd
}

// eventBus is what the server needs from an event transport.
type eventBus interface {
	app.Publisher
	app.Subscriber
}

func runServer(ctx context.Context, configPath, portFlag string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()

	var (
		store  app.Store
		loader app.StandingsLoader
	)
	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db, log); err != nil {
			return err
		}
		if seed {
			seeded, err := postgres.Seed(ctx, db, demoFixture(time.Now()))
			if err != nil {
				return err
			}
			log.Info("demo contest seeded", zap.Int64("contest_id", seeded.ContestID))
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(db)
		loader = postgres.NewStandingsLoader(pool)
	} else {
		mem := memory.NewStore()
		demo, err := memory.SeedDemo(mem, time.Now())
		if err != nil {
			return err
		}
		log.Info("using in-memory store with demo contest", zap.Int64("contest_id", demo.ContestID))
		store = mem
	}

	var bus eventBus = memory.NewEventBus()
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		bus = infraredis.NewEventBus(redisClient, cfg.Redis.Channel, log)
	}

	arena := app.NewArenaService(store,
		app.WithPublisher(bus),
		app.WithMetrics(collector),
		app.WithLogger(log.Named("arena")),
	)
	if loader == nil {
		loader = arena
	}

	standingsTTL := config.TTLDuration(cfg.Standings.TTL, 30*time.Second)
	var standings app.StandingsRepository
	if redisClient != nil {
		standings = infraredis.NewStandingsRepository(redisClient, loader, standingsTTL)
	} else {
		standings = memory.NewStandingsRepository(loader, standingsTTL)
	}
	hub := app.NewStandingsHub(standings, log.Named("standings"))

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret not configured")
	}
	handler := transport.NewHandler(arena, hub, transport.NewAuthenticator(cfg.Auth.JWTSecret),
		transport.WithMetrics(collector, collector.Handler()),
		transport.WithLogger(log.Named("http")),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting arena server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return hub.Run(gctx, bus)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func demoFixture(now time.Time) postgres.Fixture {
	f := postgres.Fixture{
		Contest: domain.Contest{
			OrganizerID:      memory.DemoOrganizerID,
			Name:             "Demo Arena",
			StartedAt:        now.Add(-time.Hour),
			ClosedAt:         now.Add(24 * time.Hour),
			StartPoints:      100,
			SlotsForProblems: 3,
			RuleType:         domain.RuleDefault,
		},
		Rows:    3,
		Columns: 3,
		Contestants: []domain.Contestant{
			{UserID: 1, Name: "alice"},
			{UserID: 2, Name: "bob"},
		},
	}
	for _, c := range memory.DemoGrid {
		f.Cards = append(f.Cards, postgres.FixtureCard{
			CategoryName:  c.Category,
			CategoryPrice: c.Price,
			Statement:     c.Question,
			Answer:        c.Answer,
		})
	}
	return f
}
