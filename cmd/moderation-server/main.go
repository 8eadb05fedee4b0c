package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-moderation/internal/logger"
	"github.com/tendant/simple-moderation/pkg/moderation/api"
	"github.com/tendant/simple-moderation/pkg/moderation/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment", "err", err)
	}

	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	log := logger.New(serverConfig.Environment, serverConfig.LogLevel)
	slog.SetDefault(log)

	ctx := context.Background()
	rt, err := serverConfig.BuildService(ctx, log)
	if err != nil {
		log.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if serverConfig.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(api.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := serverConfig.CORSAllowedOrigins
	if len(origins) == 0 && serverConfig.Environment == "development" {
		origins = []string{"*"}
	}
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))

	handler := api.NewHandler(rt.Service, log)
	r.Route("/api/v1", func(r chi.Router) {
		if serverConfig.RateLimitPerSecond > 0 {
			r.Use(api.NewRateLimiter(serverConfig.RateLimitPerSecond).Middleware)
		}
		r.Mount("/", handler.Routes())
	})

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Moderation server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "err", err)
	}
	log.Info("Server exiting")
}
