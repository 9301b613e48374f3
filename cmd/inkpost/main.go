// Package main is the entry point for the inkpost API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/config"
	"inkpost/internal/database"
	"inkpost/internal/handlers"
	"inkpost/internal/kv"
	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/router"
	"inkpost/internal/service"
	"inkpost/internal/storage"
	"inkpost/internal/store"
	"inkpost/internal/store/memory"
	"inkpost/internal/token"
)

// repositories is the persistence layer selected by STORE_DRIVER.
type repositories struct {
	users      service.UserRepository
	categories service.CategoryRepository
	posts      service.PostRepository
	media      service.MediaRepository
	closer     io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
	)

	repos, err := openRepositories(cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	if repos.closer != nil {
		defer repos.closer.Close()
	}

	tokens, err := token.New([]byte(cfg.JWTSecret))
	if err != nil {
		slog.Error("failed to initialize token service", "error", err)
		os.Exit(1)
	}

	// Rate limiting: shared through Valkey when configured, per-process otherwise.
	var limit func(http.Handler) http.Handler
	if cfg.UseValkey() {
		valkeyClient, err := kv.Connect(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		limit = middleware.NewSharedRateLimiter(kv.NewCounter(valkeyClient), cfg.RateLimitMax, cfg.RateLimitWindow).
			TrustProxy(cfg.TrustProxy).Middleware
	} else {
		rl := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow).TrustProxy(cfg.TrustProxy)
		defer rl.Stop()
		limit = rl.Middleware
	}

	// Media backend: S3-compatible storage when configured, local disk otherwise.
	var (
		backend   storage.Backend
		uploadDir string
	)
	if cfg.UseS3() {
		s3Client, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		backend = s3Client
	} else {
		disk, err := storage.NewDisk(cfg.UploadDir, "/uploads")
		if err != nil {
			slog.Error("failed to prepare upload directory", "error", err)
			os.Exit(1)
		}
		slog.Info("storing uploads on disk", "dir", disk.Root())
		backend = disk
		uploadDir = disk.Root()
	}

	accounts := service.NewAccounts(repos.users, tokens)
	r := router.New(router.Handlers{
		Auth:       handlers.NewAuth(accounts),
		Posts:      handlers.NewPosts(service.NewPosts(repos.posts, repos.categories, repos.users)),
		Categories: handlers.NewCategories(service.NewCategories(repos.categories)),
		Media:      handlers.NewMedia(repos.media, backend, cfg.MaxUploadBytes()),
	}, router.Options{
		Resolver:   accounts,
		RateLimit:  limit,
		CORSOrigin: cfg.CORSOrigin,
		UploadDir:  uploadDir,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// setupLogger installs the default structured logger: text in
// development, JSON everywhere else.
func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openRepositories(cfg *config.Config) (*repositories, error) {
	if cfg.StoreDriver == config.DriverMemory {
		repos := &repositories{
			users:      memory.NewUsers(bcrypt.DefaultCost),
			categories: memory.NewCategories(),
			posts:      memory.NewPosts(),
			media:      memory.NewMedia(),
		}
		if cfg.IsDev() {
			if err := seedMemory(repos); err != nil {
				return nil, err
			}
		}
		slog.Warn("using in-memory store; data is lost on restart")
		return repos, nil
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &repositories{
		users:      store.NewUserStore(db),
		categories: store.NewCategoryStore(db),
		posts:      store.NewPostStore(db),
		media:      store.NewMediaStore(db),
		closer:     db,
	}, nil
}

// seedMemory mirrors database.Seed for the in-memory driver.
func seedMemory(repos *repositories) error {
	ctx := context.Background()
	if _, err := repos.users.Create(ctx, &models.User{
		Username:  database.SeedAdminUsername,
		Email:     database.SeedAdminEmail,
		FirstName: "Site",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
	}, database.SeedAdminPassword); err != nil {
		return err
	}
	_, err := repos.categories.Create(ctx, &models.Category{
		Name:  database.SeedCategoryName,
		Slug:  database.SeedCategorySlug,
		Color: models.DefaultCategoryColor,
	})
	return err
}
