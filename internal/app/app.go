package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum-backend/internal/config"
	"forum-backend/internal/database"
	"forum-backend/internal/event"
	"forum-backend/internal/handler"
	"forum-backend/internal/metrics"
	"forum-backend/internal/middleware"
	"forum-backend/internal/notify"
	"forum-backend/internal/repository"
	"forum-backend/internal/router"
	"forum-backend/internal/service"
	"forum-backend/internal/session"
	"forum-backend/internal/storage"
	"forum-backend/internal/websocket"
)

const (
	shutdownTimeout = 10 * time.Second
	sessionSweep    = time.Minute

	// A challenge is keyed by the token id, so it can only be verified while
	// the token is valid; keep it readable for that long.
	sessionGrace = service.SessionTTL
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	if cfg.MetricsEnabled {
		metrics.Init()
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewResetRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	threadRepo := repository.NewThreadRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	likeRepo := repository.NewLikeRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	slog.Info("database ready")

	tokens, err := service.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	bus := event.NewBus()
	challenges := session.NewMemoryStore(sessionGrace)

	activityService := service.NewActivityService(activityRepo)
	authService, err := service.NewAuthService(userRepo, tokens, activityService, cfg.BcryptCost)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	resetService := service.NewPasswordResetService(userRepo, resetRepo, notifier, activityService, service.PasswordResetConfig{
		AdminEmail:  cfg.ResetAdminEmail,
		FrontendURL: cfg.FrontendURL,
		BcryptCost:  cfg.BcryptCost,
	})
	recoveryService := service.NewRecoveryEmailService(userRepo, challenges, notifier, activityService)
	uploadService := service.NewUploadService(blobs)
	userService := service.NewUserService(userRepo, uploadService, activityService)
	categoryService := service.NewCategoryService(categoryRepo, activityService)
	threadService := service.NewThreadService(threadRepo, categoryRepo, uploadService, activityService)
	postService := service.NewPostService(postRepo, threadRepo, uploadService, bus, activityService)
	likeService := service.NewLikeService(likeRepo, threadRepo, postRepo, bus, activityService)
	reportService := service.NewReportService(reportRepo, userRepo, threadRepo, postRepo, bus, activityService)
	notificationService := service.NewNotificationService(notificationRepo)
	dispatcher := service.NewNotificationDispatcher(notificationRepo, bus)
	hub := websocket.NewHub(bus, cfg.CORSOrigins)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Health:        handler.NewHealthHandler(db),
		Docs:          handler.NewDocsHandler(cfg.OpenAPISpecPath),
		Auth:          handler.NewAuthHandler(authService),
		Password:      handler.NewPasswordHandler(resetService),
		RecoveryEmail: handler.NewRecoveryEmailHandler(recoveryService),
		User:          handler.NewUserHandler(userService),
		Category:      handler.NewCategoryHandler(categoryService),
		Thread:        handler.NewThreadHandler(threadService),
		Post:          handler.NewPostHandler(postService),
		Like:          handler.NewLikeHandler(likeService),
		Report:        handler.NewReportHandler(reportService),
		Notification:  handler.NewNotificationHandler(notificationService, hub),
		Activity:      handler.NewActivityHandler(activityService),
		Upload:        handler.NewUploadHandler(uploadService),
	})

	workerCtx, cancel := context.WithCancel(context.Background())
	dispatcherReady := make(chan struct{})
	hubReady := make(chan struct{})
	go dispatcher.Run(workerCtx, dispatcherReady)
	go hub.Run(workerCtx, hubReady)
	go challenges.Run(workerCtx, sessionSweep)
	<-dispatcherReady
	<-hubReady

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			cancel,
			resetService.Wait,
			db.Close,
		},
	}, nil
}

func newNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, error) {
	if cfg.MailDriver != config.MailDriverSES {
		slog.Warn("MAIL_DRIVER=log: OTP emails are written to the log")
		return notify.NewLogNotifier(slog.Default()), nil
	}

	notifier, err := notify.NewSESNotifier(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
	}
	slog.Info("email delivery via SES", "region", cfg.SESRegion, "from", cfg.SESFromEmail)
	return notifier, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageDriver == config.StorageDriverS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		slog.Info("blob storage on S3", "bucket", cfg.S3Bucket)
		return store, nil
	}

	store, err := storage.NewLocalStore(cfg.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("blob storage on local disk", "root", store.RootAbs())
	return store, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.Close()

	if runErr != nil {
		return runErr
	}

	slog.Info("server stopped")
	return nil
}

// Handler exposes the routed handler without starting a listener.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Close stops background workers and releases the database pool.
func (a *App) Close() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
	a.cleanupFuncs = nil
}
