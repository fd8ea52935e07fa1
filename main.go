package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flow-pantry-system/config"
	"flow-pantry-system/handlers"
	"flow-pantry-system/middleware"
	"flow-pantry-system/services"
	"flow-pantry-system/store"
	"flow-pantry-system/utils"
	"flow-pantry-system/workers"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	bodyLimit       = 50 * 1024 * 1024
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, foundDotEnv, err := config.Load()
	if err != nil {
		// no logger yet
		panic(err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if !foundDotEnv {
		log.Info("⚠️ No .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(strings.ToLower(cfg.DBType), cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}
	gateway, err := store.NewGateway(db, log)
	if err != nil {
		log.Fatal("failed to build store gateway", zap.Error(err))
	}

	objects, serveUploads := newObjectStore(ctx, cfg, log)

	users := services.NewUserService(gateway, log)
	tournaments := services.NewTournamentService(gateway, log)
	flows := services.NewFlowService(gateway, objects, users, tournaments, log)
	inventory := services.NewInventoryService(gateway, objects, users, log)
	recipes := services.NewRecipeService(gateway, log)

	var generator *services.RecipeGenerator
	if cfg.GeminiAPIKey != "" {
		completer, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal("failed to create Gemini client", zap.Error(err))
		}
		generator = services.NewRecipeGenerator(completer, log)
	} else {
		log.Warn("⚠️ GEMINI_API_KEY not set, recipe generation disabled")
	}

	hub := services.NewSessionHub()
	hub.Subscribe(services.EnsureUserOnSignIn(users, log))

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return utils.DomainError(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token, X-User-ID, X-User-Email, X-User-Name",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: cfg.Origins() != "*",
		MaxAge:           86400,
	}))

	prometheus := fiberprometheus.New("flow_pantry_system")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, log))
	app.Use(middleware.SessionMiddleware(hub, cfg.AuthJWTSecret, log))

	if serveUploads {
		app.Static("/uploads", cfg.UploadDir)
	}

	handlers.SetupUserRoutes(app, &handlers.UserHandler{Users: users, Log: log})
	handlers.SetupFlowRoutes(app, &handlers.FlowHandler{Flows: flows, Log: log})
	handlers.SetupTournamentRoutes(app, &handlers.TournamentHandler{Tournaments: tournaments, Log: log})
	handlers.SetupInventoryRoutes(app, &handlers.InventoryHandler{Inventory: inventory, Log: log})
	handlers.SetupRecipeRoutes(app, &handlers.RecipeHandler{Recipes: recipes, Generator: generator, Log: log})

	app.Use(func(c *fiber.Ctx) error {
		return utils.ErrorResponse(c, "[404] Resource Not Found", fiber.StatusNotFound, "not_found")
	})

	if cfg.FlowRetention > 0 {
		scheduler, err := flows.StartRetentionScheduler(ctx, cfg.FlowRetention, time.Hour)
		if err != nil {
			log.Fatal("failed to start retention scheduler", zap.Error(err))
		}
		defer func() { _ = scheduler.Shutdown() }()
	}

	if cfg.DetectionEndpoint != "" {
		detector := services.NewDetectionClient(cfg.DetectionEndpoint, cfg.DetectionAPIKey, log)
		workers.NewLabelSyncWorker(inventory, detector, cfg.LabelSyncInterval, log).Start(ctx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	log.Info("✅ Server running", zap.String("port", cfg.Port))
	log.Info("✅ CORS configured", zap.String("origins", cfg.Origins()))

	<-ctx.Done()
	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// newObjectStore picks R2 when it is configured and the local disk otherwise.
// The bool reports whether uploads must be served by this process.
func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (utils.ObjectStore, bool) {
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Store(ctx, utils.R2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
		}, log)
		if err != nil {
			log.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		log.Info("☁️ Object storage: R2", zap.String("bucket", cfg.R2.Bucket))
		return r2, false
	}

	disk, err := utils.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal("failed to ensure upload dir", zap.Error(err))
	}
	log.Info("💾 Object storage: local disk", zap.String("dir", cfg.UploadDir))
	return disk, true
}
