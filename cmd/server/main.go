package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/classroom-app/internal/api"
	"alcyxob/classroom-app/internal/config"
	"alcyxob/classroom-app/internal/lock"
	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/repository/memory"
	"alcyxob/classroom-app/internal/repository/mongo"
	"alcyxob/classroom-app/internal/service"
	"alcyxob/classroom-app/internal/storage"

	"github.com/redis/go-redis/v9"
)

type repositories struct {
	users       repository.UserRepository
	classes     repository.ClassRepository
	assignments repository.AssignmentRepository
}

func main() {
	log.Println("Starting Classroom App Server...")
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Println("Server exiting.")
}

func run() error {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log.Println("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Repositories ---
	repos, closeDB, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	// --- Assignment lock ---
	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	// --- File storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.Enabled() {
		log.Println("Initializing file storage service...")
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
	} else {
		log.Println("WARN: S3 bucket not configured, upload endpoints will return 503")
	}

	// --- Services ---
	log.Println("Initializing services...")
	classService := service.NewClassService(repos.users, repos.classes, repos.assignments, fileStorage)
	guard := classService.Guard()
	authService := service.NewAuthService(repos.users, guard, cfg.JWT.Secret, cfg.JWT.Expiration)
	services := api.Services{
		Auth:        authService,
		Admin:       service.NewAdminService(repos.users, repos.classes, repos.assignments, guard),
		Classes:     classService,
		Assignments: service.NewAssignmentService(repos.assignments, repos.classes, guard, locker, fileStorage),
		Submissions: service.NewSubmissionService(repos.assignments, guard, locker, service.SubmissionOptions{
			LockEvaluated: cfg.Submissions.LockEvaluated,
		}),
		Reports: service.NewReportService(repos.assignments, repos.classes, guard),
		Uploads: service.NewUploadService(repos.assignments, repos.classes, guard, fileStorage, cfg.S3.PresignExpiry),
	}

	if cfg.Admin.Enabled() {
		created, err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("failed to bootstrap admin account: %w", err)
		}
		if created {
			log.Printf("INFO: Bootstrap admin %s created", cfg.Admin.Email)
		}
	}

	// --- Routes ---
	log.Println("Setting up API routes...")
	router := api.NewRouter(cfg.Server.AllowedOrigins)
	api.SetupRoutes(router, cfg.JWT.Secret, services)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("listen error: %w", err)
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	// In-flight requests get 5 seconds to finish.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (repositories, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Println("WARN: Using in-memory storage, data is lost on restart")
		db := memory.Open()
		return repositories{
			users:       memory.NewUserRepository(db),
			classes:     memory.NewClassRepository(db),
			assignments: memory.NewAssignmentRepository(db),
		}, func() {}, nil
	default:
		client, err := mongo.ConnectDB(ctx, cfg.URI)
		if err != nil {
			return repositories{}, nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		appDB := client.Database(cfg.Name)
		log.Println("Database connection established.")

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		mongo.EnsureIndexes(indexCtx, appDB)
		cancel()

		closeDB := func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(client); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		}
		return repositories{
			users:       mongo.NewMongoUserRepository(appDB),
			classes:     mongo.NewMongoClassRepository(appDB),
			assignments: mongo.NewMongoAssignmentRepository(appDB),
		}, closeDB, nil
	}
}

// openLocker returns a Redis lock when redis.url is set so that several
// server instances serialize submissions; otherwise an in-process lock.
func openLocker(ctx context.Context, cfg config.Config) (lock.Locker, func(), error) {
	if cfg.Redis.URL == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	log.Println("Redis connection established.")
	return lock.NewRedisLocker(client, cfg.Submissions.LockTTL), func() {
		if err := client.Close(); err != nil {
			log.Printf("ERROR: Failed to close Redis client: %v", err)
		}
	}, nil
}
