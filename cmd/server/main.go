package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/config"
	"github.com/telegram-manager/manager-server-go/internal/database"
	"github.com/telegram-manager/manager-server-go/internal/handler"
	"github.com/telegram-manager/manager-server-go/internal/jobs"
	"github.com/telegram-manager/manager-server-go/internal/middleware"
	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/queue"
	"github.com/telegram-manager/manager-server-go/internal/redis"
	"github.com/telegram-manager/manager-server-go/internal/repository"
	"github.com/telegram-manager/manager-server-go/internal/service"
	"github.com/telegram-manager/manager-server-go/internal/telegram"
	"github.com/telegram-manager/manager-server-go/internal/worker"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), config.DBMigrateTimeout)
	if err := db.Migrate(migrateCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	migrateCancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	if err := os.MkdirAll(cfg.ExportsDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create exports directory")
	}

	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	dialogRepo := repository.NewDialogRepository(db.DB)
	memberRepo := repository.NewMemberRepository(db.DB)
	contactRepo := repository.NewContactRepository(db.DB)
	jobRepo := repository.NewJobRepository(db.DB)
	exportRepo := repository.NewExportRepository(db.DB)

	monitor := telegram.NewAuthMonitor()
	monitor.Start()

	factory := telegram.NewBridgeFactory(cfg.BridgeCmd)
	registry := telegram.NewRegistry(factory, monitor, cfg.TdlibDatabaseDir, cfg.TdlibFilesDir)

	jobQueue := queue.New(redisClient.Client, "telegram", cfg.QueueConcurrency, cfg.QueueMaxAttempts)

	telegramService := service.NewTelegramService(
		sessionRepo, dialogRepo, memberRepo, contactRepo, jobRepo, registry, jobQueue,
	)
	exportService := service.NewExportService(
		exportRepo, jobRepo, jobQueue, cfg.ExportsDir, cfg.ExportTTL(),
	)

	collectWorker := worker.NewCollectMembersWorker(memberRepo, jobRepo, registry)
	exportWorker := worker.NewExportDataWorker(exportRepo, memberRepo, jobRepo, cfg.ExportsDir)
	jobQueue.Register(model.QueueJobCollectMembers, collectWorker.Handle)
	jobQueue.Register(model.QueueJobExportData, exportWorker.Handle)
	jobQueue.Start()

	reaper := jobs.NewExportReaper(exportRepo, cfg.ExportsDir, config.ExportReaperInterval)
	reaper.Start()
	defer reaper.Stop()

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	sessionHandler := handler.NewSessionHandler(telegramService)
	dialogHandler := handler.NewDialogHandler(telegramService)
	jobHandler := handler.NewJobHandler(telegramService)
	exportHandler := handler.NewExportHandler(exportService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/sessions", sessionHandler.Routes())
		r.Mount("/dialogs", dialogHandler.Routes())
		r.Mount("/jobs", jobHandler.Routes())
		r.Mount("/exports", exportHandler.Routes())
	})

	r.Route("/exports", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Handle("/*", http.StripPrefix("/exports/", http.FileServer(http.Dir(cfg.ExportsDir))))
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let in-flight jobs drain before tearing down the client handles they
	// may still be using.
	jobQueue.Stop()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), config.QueueDrainTimeout)
	registry.CloseAll(closeCtx)
	closeCancel()
	monitor.Stop()

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
