package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"skirmish-server/config"
	"skirmish-server/game"
	"skirmish-server/handlers"
	"skirmish-server/logging"
	"skirmish-server/middleware"
	"skirmish-server/services"
	"skirmish-server/store"
	"skirmish-server/utils"
	"skirmish-server/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logging.Init(cfg.LogLevel, cfg.LogDev); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logging.Sync()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logging.Fatal("migrate", zap.Error(err))
	}

	matchStore := store.NewMatchStore(db)
	metaStore := store.NewMetaStore(db)
	userStore := store.NewUserStore(db)

	rules := game.Rules{
		RosterSize:   cfg.RosterSize,
		Grid:         game.Grid{Width: cfg.GridWidth, Height: cfg.GridHeight},
		MoveRange:    cfg.MoveRange,
		AttackDamage: cfg.AttackDamage,
	}
	engine := game.NewEngine(matchStore, rules)

	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authService := services.NewAuthService(userStore, tokenService)
	matchService := services.NewMatchService(matchStore, metaStore, engine)
	turnService := services.NewTurnService(engine)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		MaxAge:       86400,
	}))

	handlers.SetupHealthRoutes(app)
	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupMatchRoutes(app, tokenService, matchService, turnService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reaper := services.NewIdleReaper(matchStore, engine, cfg.MatchIdleTimeout)
	scheduler, err := reaper.Start(cfg.ReaperInterval)
	if err != nil {
		logging.Fatal("idle reaper", zap.Error(err))
	}

	if cfg.Archive.Enabled {
		r2, err := utils.NewR2Client(ctx, cfg.Archive)
		if err != nil {
			logging.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		archiver := workers.NewArchiveWorker(matchStore, metaStore, r2)
		go workers.PollArchive(ctx, archiver, cfg.Archive.Interval)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logging.Info("server running",
		zap.String("port", cfg.Port),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
		zap.Bool("archive_enabled", cfg.Archive.Enabled),
	)

	<-ctx.Done()
	logging.Info("shutting down server")

	if err := scheduler.Shutdown(); err != nil {
		logging.Warn("scheduler shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.Warn("server shutdown", zap.Error(err))
	}
}
