package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/speed-dating/internal/api"
	"github.com/dom/speed-dating/internal/collab"
	"github.com/dom/speed-dating/internal/config"
	"github.com/dom/speed-dating/internal/logger"
	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/dom/speed-dating/internal/metrics"
	"github.com/dom/speed-dating/internal/repository/postgres"
	"github.com/dom/speed-dating/internal/service"
	"github.com/dom/speed-dating/internal/store"
	"github.com/dom/speed-dating/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repos := postgres.NewRepositories(db)

	// Collaborator lookups live in Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid redis url", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cancelPing()
	directory := collab.NewRedisDirectory(rdb)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// Persistence boundary
	users := store.NewUsers(repos.User, cfg.PersistTimeout, log, collector)
	sessions := store.NewSessions(repos.Session)
	history := store.NewHistoryWriter(repos.ChatHistory, cfg.HistoryQueue, cfg.PersistTimeout, log, collector)

	engine := matchmaking.NewEngine(matchmaking.Options{
		Users:    users,
		History:  history,
		Recorder: collector,
		Logger:   log,
	})

	hub := websocket.NewHub(engine, users, websocket.Config{
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventBurst:      cfg.WSEventBurst,
		Throttle:        collector,
		Logger:          log,
	})
	go hub.Run()

	services := service.NewServices(repos, users, sessions, directory, hub, cfg)
	router := api.NewRouter(services, hub, metrics.Handler(reg), cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", slog.String("port", cfg.Port), slog.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	// Live calls are finalized by the hub before the writers drain.
	hub.Stop()
	history.Close()
	users.Close()
	if err := rdb.Close(); err != nil {
		log.Warn("failed to close redis client", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
}
