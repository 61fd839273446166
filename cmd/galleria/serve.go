package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/serjogas/galleria"
	"github.com/serjogas/galleria/config"
	"github.com/serjogas/galleria/dynamo"
	galleriahttp "github.com/serjogas/galleria/http"
	"github.com/serjogas/galleria/memory"
	"github.com/serjogas/galleria/s3store"
	"github.com/serjogas/galleria/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the galleria HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	configFiles, _ := cmd.Flags().GetStringSlice("config")
	cfg, err := config.Load(configFiles, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Log.Level)

	repo, closeRepo, err := buildRepo(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build credential store: %w", err)
	}
	defer closeRepo()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}

	hasher := galleria.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := galleria.NewTokenIssuer(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTL)*time.Second)

	auth := galleria.NewAuthService(repo, hasher, tokens)
	gallery := galleria.NewGalleryService(repo, store, galleria.GalleryConfig{
		SkipDuplicates: cfg.Gallery.SkipDuplicates,
	})

	handlerConfig := galleriahttp.HandlerConfig{
		MaxUploadSize: cfg.Server.MaxUploadSize,
		CORS:          cfg.CORS,
	}
	handler := galleriahttp.NewHandler(&handlerConfig, auth, gallery, tokens)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"database", cfg.Database.Type,
		"storage", cfg.Storage.Type,
		"skip_duplicates", cfg.Gallery.SkipDuplicates,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func buildRepo(ctx context.Context, cfg *config.Config) (galleria.CredentialRepo, func(), error) {
	noop := func() {}

	switch cfg.Database.Type {
	case "dynamo":
		client, err := dynamo.NewClient(ctx, dynamo.ClientConfig{
			Region:    cfg.AWS.Region,
			Endpoint:  cfg.AWS.Endpoint,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
		})
		if err != nil {
			return nil, noop, err
		}
		slog.Info("using dynamodb credential store", "table", cfg.Database.Table)
		return dynamo.New(client, cfg.Database.Table), noop, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, noop, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		slog.Info("using sqlite credential store", "dsn", cfg.Database.DSN)
		return sqlite.NewRepo(db), func() { _ = db.Close() }, nil

	case "memory":
		slog.Warn("using in-memory credential store, data is not persisted")
		return memory.NewRepo(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown database type: %s", cfg.Database.Type)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (galleria.ObjectStore, error) {
	expiry := time.Duration(cfg.Storage.PresignExpiry) * time.Second

	switch cfg.Storage.Type {
	case "s3":
		client, err := s3store.NewClient(ctx, s3store.ClientConfig{
			Region:    cfg.AWS.Region,
			Endpoint:  cfg.AWS.Endpoint,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s3store.New(client, cfg.Storage.Bucket, expiry), nil

	case "memory":
		slog.Warn("using in-memory object store, data is not persisted")
		return memory.NewStore("http://localhost/"+cfg.Storage.Bucket, cfg.Storage.PresignExpiry), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
