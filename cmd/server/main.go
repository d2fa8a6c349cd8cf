package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/api"
	"github.com/ynakagi/homerelay/internal/api/handler"
	"github.com/ynakagi/homerelay/internal/config"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/repository/memory"
	"github.com/ynakagi/homerelay/internal/repository/mongo"
	"github.com/ynakagi/homerelay/internal/repository/redis"
	"github.com/ynakagi/homerelay/internal/repository/sqlite"
	"github.com/ynakagi/homerelay/internal/security"
	"github.com/ynakagi/homerelay/internal/switchbot"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("tenancy", cfg.Tenancy).
		Msg("Starting home relay server")

	// Initialize the profile source and registration session store
	var (
		profiles domain.ProfileRepository
		pinger   handler.Pinger
		sessions domain.SessionStore
	)

	switch cfg.Tenancy {
	case config.TenancySingle:
		gateway := switchbot.NewClient(cfg.SwitchBot.BaseURL, cfg.SwitchBot.Timeout)
		var fallback []domain.Device
		if cfg.SwitchBot.DeviceID != "" {
			fallback = append(fallback, domain.Device{
				DeviceID:   cfg.SwitchBot.DeviceID,
				DeviceName: cfg.SwitchBot.DeviceName,
			})
		}
		profiles = memory.NewStaticProfiles(cfg.SwitchBot.Token, gateway, fallback)

	case config.TenancyMulti:
		if cfg.Storage.EncryptionKey == "" {
			log.Fatal().Msg("storage.encryption_key is required in multi-tenant mode (STORAGE_ENCRYPTION_KEY)")
		}
		encryptor, err := security.NewEncryptor([]byte(cfg.Storage.EncryptionKey))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize credential encryption")
		}

		switch cfg.Storage.Backend {
		case config.StorageMongo:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			repo, err := mongo.NewProfileRepository(ctx, cfg.Storage.Mongo, encryptor)
			cancel()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
			}
			defer repo.Close(context.Background())
			profiles, pinger = repo, repo

		case config.StorageSQLite:
			repo, err := sqlite.NewProfileRepository(cfg.Storage.SQLite.Path, encryptor)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to open SQLite database")
			}
			defer repo.Close()
			profiles, pinger = repo, repo

		default:
			log.Fatal().Str("backend", cfg.Storage.Backend).Msg("Unknown storage backend")
		}

		switch cfg.Session.Backend {
		case "redis":
			store, err := redis.NewSessionStore(cfg.Session.Redis, cfg.Session.TTL)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to Redis")
			}
			defer store.Close()
			sessions = store
		default:
			sessions = memory.NewSessionStore(cfg.Session.TTL)
		}
	}

	// Initialize router
	router := api.NewRouter(cfg, profiles, pinger, sessions)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
