package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifelog/pulse-agent/internal/auth"
	"lifelog/pulse-agent/internal/category"
	"lifelog/pulse-agent/internal/client"
	"lifelog/pulse-agent/internal/config"
	"lifelog/pulse-agent/internal/database"
	"lifelog/pulse-agent/internal/device"
	"lifelog/pulse-agent/internal/idle"
	"lifelog/pulse-agent/internal/input"
	"lifelog/pulse-agent/internal/logger"
	"lifelog/pulse-agent/internal/platform"
	"lifelog/pulse-agent/internal/queue"
	"lifelog/pulse-agent/internal/repository"
	"lifelog/pulse-agent/internal/server"
	"lifelog/pulse-agent/internal/service"
	"lifelog/pulse-agent/internal/session"
	"lifelog/pulse-agent/internal/syncer"
	"lifelog/pulse-agent/internal/tray"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting pulse agent",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	platformInstance, err := platform.NewPlatform()
	if err != nil {
		log.Fatal("Failed to initialize platform", zap.Error(err))
	}

	deviceManager := device.NewManager(db.DB, platformInstance, log.Logger)
	deviceID, err := deviceManager.GetOrCreateDeviceID(cfg.Device.ID, cfg.Device.Name)
	if err != nil {
		log.Fatal("Failed to resolve device ID", zap.Error(err))
	}

	tokens, err := auth.NewStore(db.DB, cfg.Auth.AccessToken, cfg.Auth.RefreshToken, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize token store", zap.Error(err))
	}
	if !tokens.HasCredentials() {
		log.Warn("No credentials available; activities will queue until tokens are provided")
	}

	apiClient := client.NewAPIClient(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.Timeout)*time.Second,
		log.Logger,
	)

	activityQueue := queue.NewActivityQueue(db.DB, log.Logger)
	repo := repository.NewActivityLogRepository(db.DB)
	categorizer := category.New(cfg.Categories)

	engine := syncer.NewEngine(
		activityQueue,
		apiClient,
		tokens,
		deviceID,
		cfg.Tracking.SyncBatchSize,
		time.Duration(cfg.Tracking.SyncInterval)*time.Second,
		log.Logger,
	)

	sessionInput := input.NewAggregator(log.Logger)
	windowInput := input.NewAggregator(log.Logger)
	detector := idle.NewDetector(time.Duration(cfg.Tracking.IdleThreshold)*time.Second, log.Logger)
	sessionTracker := session.NewTracker(sessionInput, cfg.Tracking.ExcludedApps, log.Logger)

	collector := service.NewCollectorService(
		platformInstance,
		sessionInput,
		windowInput,
		detector,
		sessionTracker,
		engine,
		activityQueue,
		repo,
		tokens,
		cfg,
		log.Logger,
	)

	engine.Start()
	if err := collector.Start(); err != nil {
		engine.Stop()
		log.Fatal("Failed to start collector", zap.Error(err))
	}

	var httpServer *http.Server
	if cfg.Server.Enabled {
		agentServer := server.NewAgentServer(engine, collector, repo, categorizer, log.Logger)
		addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
		httpServer = &http.Server{
			Addr:         addr,
			Handler:      agentServer,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info("Starting agent HTTP server", zap.String("address", addr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Agent HTTP server error", zap.Error(err))
			}
		}()
	} else {
		log.Info("Agent HTTP server disabled in configuration")
	}

	log.Info("Pulse agent started",
		zap.String("device_id", deviceID),
		zap.String("backend_url", cfg.Backend.BaseURL),
	)

	// The tray owns the main loop when enabled; headless mode waits for a
	// signal instead.
	if cfg.Tray.Enabled {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		trayUI := tray.New(collector, engine, nil, log.Logger)
		go func() {
			sig := <-quit
			log.Info("Received shutdown signal", zap.String("signal", sig.String()))
			trayUI.Quit()
		}()
		trayUI.Run()
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	log.Info("Shutting down pulse agent...")

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warn("HTTP server shutdown error", zap.Error(err))
		} else {
			log.Info("HTTP server stopped")
		}
	}

	// Collector first so the final session and input window land in the
	// queue, then the engine so its final drain can push them.
	done := make(chan struct{})
	go func() {
		collector.Stop()
		engine.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Collector and sync engine stopped")
	case <-time.After(10 * time.Second):
		log.Warn("Shutdown timeout reached, forcing immediate exit")
		os.Exit(1)
	}

	if err := activityQueue.CleanupAged(7 * 24 * time.Hour); err != nil {
		log.Error("Failed to clean up aged queue rows", zap.Error(err))
	}

	log.Info("Pulse agent stopped")

	// Platform hooks can keep the process alive past main; force exit.
	os.Exit(0)
}
