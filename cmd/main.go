package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/assist"
	"Trainer-Console/server/internal/backend"
	"Trainer-Console/server/internal/config"
	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/logging"
	"Trainer-Console/server/internal/storage"
	"Trainer-Console/server/internal/store"
	"Trainer-Console/server/internal/views"
	"Trainer-Console/server/internal/web"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	log := logging.Component(logger, "main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the shared training config
	seed, err := store.ReadSeedFile(cfg.Trainer.ConfigFile)
	if err != nil {
		log.WithError(err).Warn("starting with an empty training config")
	}
	configStore := store.New(seed, logging.Component(logger, "config-store"))

	// Initialize storage connections
	if cfg.Database.Redis.Enabled {
		redisStore, err := storage.NewRedisStore(cfg.Database.Redis)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, config snapshots will not persist")
		} else {
			defer redisStore.Close()
			log.Info("Redis connected successfully")

			loadCtx, done := context.WithTimeout(ctx, 5*time.Second)
			restored, err := configStore.Load(loadCtx, redisStore)
			done()
			switch {
			case err != nil:
				log.WithError(err).Warn("failed to restore config snapshot")
			case restored:
				log.WithField("keys", len(configStore.Read())).Info("restored config snapshot from Redis")
			}
			go configStore.Persist(ctx, redisStore)
		}
	}

	var recorder interfaces.ActionRecorder
	if cfg.Database.MySQL.Enabled {
		mysqlStore, err := storage.NewMySQLStore(cfg.Database.MySQL)
		if err != nil {
			log.WithError(err).Warn("MySQL unavailable, action log disabled")
		} else {
			defer mysqlStore.Close()
			recorder = mysqlStore
			log.Info("MySQL connected successfully")
		}
	}

	var assistant interfaces.PromptAssistant
	if cfg.Assist.Enabled {
		assistant = assist.NewPromptClient(cfg.Assist)
		log.WithField("model", cfg.Assist.Model).Info("prompt assist enabled")
	}

	// Backend clients
	trainer := backend.NewTrainingClient(cfg.Backend.TrainerURL, cfg.Backend.Timeout, logging.Component(logger, "trainer-client"))
	inferenceClient := backend.NewInferenceClient(cfg.Backend.InferenceURL, cfg.Backend.Timeout, logging.Component(logger, "inference-client"))

	// Views
	backupView := views.NewBackupView(configStore, trainer, recorder, logging.Component(logger, "backup-view"))
	dataView := views.NewDataView(configStore, logging.Component(logger, "data-view"))
	defer dataView.Close()
	embeddingsView := views.NewEmbeddingsView(configStore, logging.Component(logger, "embeddings-view"))
	inferenceView := views.NewInferenceView(configStore, inferenceClient, assistant, recorder, views.InferenceOptions{
		PollInterval: cfg.Inference.PollInterval,
		GalleryLimit: cfg.Inference.GalleryLimit,
		AutoLoad:     !cfg.Inference.NoAutoLoad,
	}, logging.Component(logger, "inference-view"))
	defer inferenceView.Close()
	modelsView := views.NewModelsView(trainer, recorder, cfg.Models.BannerTTL, logging.Component(logger, "models-view"))

	mountCtx, mountDone := context.WithTimeout(ctx, cfg.Backend.Timeout)
	modelsView.Mount(mountCtx)
	inferenceView.Mount(mountCtx)
	mountDone()

	// Config feed
	hub := web.NewConfigHub(logging.Component(logger, "hub"))
	go hub.Run(ctx)
	go hub.Follow(ctx, configStore)

	r := web.NewRouter(web.Deps{
		Store:      configStore,
		Hub:        hub,
		Backup:     backupView,
		Data:       dataView,
		Embeddings: embeddingsView,
		Inference:  inferenceView,
		Models:     modelsView,
		Actions:    recorder,
		StaticDir:  cfg.Server.StaticDir,
		Log:        logging.Component(logger, "http"),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background
	go func() {
		log.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down...")

	shutdownCtx, shutdownDone := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownDone()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
	cancel()

	log.Info("Server stopped")
}
