package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	internalhttp "github.com/EternisAI/panoptes/internal/api/http"
	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/EternisAI/panoptes/internal/db"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/monitor"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/EternisAI/panoptes/internal/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var AppVersion string

const historyPerLocation = 288

func main() {
	InitConfig()

	slog.Info("Panoptes Server", "version", AppVersion)

	if config.Auth.Secret == "" {
		slog.Error("auth.jwt_secret is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := credentials.NewStore(config.Plume.Endpoints())
	tokens := token.NewManager(store, token.WithTimeout(config.Plume.RequestTimeout))
	client := plume.NewClient(tokens, store, config.Plume)
	reportService := reports.NewService(client, config.Reports)

	var recorder history.Recorder = history.NewMemoryStore(historyPerLocation)
	if config.Database.Enabled() {
		if err := db.RunMigrations(ctx, config.Database); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		pool, err := db.InitDB(ctx, config.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		recorder = history.NewPostgresStore(pool)
	} else {
		slog.Info("No database configured, keeping health history in memory")
	}

	mon, err := monitor.New(reportService, recorder, config.Monitor)
	if err != nil {
		slog.Error("Failed to create health monitor", "error", err)
		os.Exit(1)
	}
	if config.Monitor.Enabled {
		if err := mon.Start(ctx); err != nil {
			slog.Error("Failed to start health monitor", "error", err)
			os.Exit(1)
		}
	}

	services := &internalhttp.Services{
		Store:       store,
		Tokens:      tokens,
		Client:      client,
		Reports:     reportService,
		Monitor:     mon,
		History:     recorder,
		JWT:         config.Auth,
		AdminAPIKey: config.Http.AdminAPIKey,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Http.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down servers...")
	cancel()

	var wg sync.WaitGroup
	shutdownTimeout := 10 * time.Second

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mon.Stop(); err != nil && err != monitor.ErrNotStarted {
			slog.Error("Health monitor shutdown error", "error", err)
		}
	}()

	wg.Wait()
	slog.Info("Shutdown complete")
}
