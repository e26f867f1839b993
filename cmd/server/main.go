package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"personal-diary/internal/config"
	"personal-diary/internal/domain"
	apphttp "personal-diary/internal/http"
	"personal-diary/internal/repository/sqlite"
	"personal-diary/internal/service"
	"personal-diary/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	visibility, err := domain.ParseVisibility(cfg.Entries.Visibility)
	if err != nil {
		logger.Fatalf("entries visibility: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db, logger); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	entryRepo := sqlite.NewEntryRepository(db)

	userService := service.NewUserService(userRepo, cfg.Security.BcryptCost)
	entryService := service.NewEntryService(entryRepo, userRepo, visibility, logger)

	store, closeStore, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeStore()

	sessions, err := session.NewManager(store, session.Options{
		Secret:     cfg.Session.Secret,
		MaxAge:     cfg.Session.MaxAge,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.IsProduction(),
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("setup sessions: %v", err)
	}
	if cfg.Session.Secret == config.DevSessionSecret {
		logger.Warn("using the development session secret; set DIARY_SESSION_SECRET")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handler := apphttp.NewHandler(userService, entryService, sessions, logger, db.PingContext)
	if err := handler.RegisterRoutes(router); err != nil {
		logger.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apphttp.MethodOverride(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":       cfg.Server.Addr,
			"env":        cfg.Server.Env,
			"database":   cfg.Database.Path,
			"visibility": visibility,
			"sessions":   cfg.Session.Store,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildSessionStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (session.Store, func(), error) {
	if cfg.Session.Store != "redis" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	logger.Infof("using redis session store at %s", cfg.Redis.Addr)
	return session.NewRedisStore(client), func() { _ = client.Close() }, nil
}
