package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/config"
	"forum-backend/internal/handler"
	"forum-backend/internal/metrics"
	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
)

type Handlers struct {
	Health        *handler.HealthHandler
	Docs          *handler.DocsHandler
	Auth          *handler.AuthHandler
	Password      *handler.PasswordHandler
	RecoveryEmail *handler.RecoveryEmailHandler
	User          *handler.UserHandler
	Category      *handler.CategoryHandler
	Thread        *handler.ThreadHandler
	Post          *handler.PostHandler
	Like          *handler.LikeHandler
	Report        *handler.ReportHandler
	Notification  *handler.NotificationHandler
	Activity      *handler.ActivityHandler
	Upload        *handler.UploadHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(middleware.RateLimits{
		GeneralPerMinute: cfg.RateLimitRPM,
		AuthPerMinute:    cfg.AuthRateLimitRPM,
		ResetPerHour:     cfg.ResetRateLimitPerHour,
	})

	r.Use(middleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", h.Health.Health)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	requireAuth := authMiddleware.RequireAuth
	requireAdmin := authMiddleware.RequireRoles(model.RoleAdmin)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(rateLimitMiddleware.Handler)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.With(requireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/password", func(pw chi.Router) {
			pw.Post("/request-reset", h.Password.RequestReset)
			pw.Get("/validate-token/{token}", h.Password.ValidateToken)
			pw.Post("/reset", h.Password.Reset)
		})

		api.Route("/recovery-email", func(re chi.Router) {
			re.Use(requireAuth)
			re.Get("/", h.RecoveryEmail.Get)
			re.Post("/set", h.RecoveryEmail.Set)
			re.Post("/verify", h.RecoveryEmail.Verify)
		})

		api.Route("/users", func(users chi.Router) {
			users.With(requireAuth).Post("/profile-picture", h.User.UploadProfilePicture)
			users.With(authMiddleware.OptionalAuth).Get("/{id}", h.User.Get)
			users.Get("/{id}/profile-picture", h.User.ProfilePicture)
			users.With(requireAuth).Put("/{id}", h.User.Update)
			users.With(requireAuth, requireAdmin).Put("/{id}/ban", h.User.Ban)
			users.With(requireAuth, requireAdmin).Put("/{id}/unban", h.User.Unban)
			users.With(requireAuth, requireAdmin).Delete("/{id}", h.User.Delete)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(requireAuth, requireAdmin)
			admin.Get("/users", h.User.List)
			admin.Get("/password-reset-requests", h.Password.ListRequests)
			admin.Put("/password-reset-requests/{id}/mark-used", h.Password.MarkUsed)
		})

		api.Route("/categories", func(categories chi.Router) {
			categories.Get("/", h.Category.List)
			categories.Get("/{id}", h.Category.Get)
			categories.With(requireAuth, requireAdmin).Post("/", h.Category.Create)
			categories.With(requireAuth, requireAdmin).Put("/{id}", h.Category.Update)
			categories.With(requireAuth, requireAdmin).Delete("/{id}", h.Category.Delete)
		})

		api.Route("/threads", func(threads chi.Router) {
			threads.Get("/", h.Thread.List)
			threads.Get("/{id}", h.Thread.Get)
			threads.With(requireAuth).Post("/", h.Thread.Create)
			threads.With(requireAuth).Put("/{id}", h.Thread.Update)
			threads.With(requireAuth).Delete("/{id}", h.Thread.Delete)
		})

		api.Route("/posts", func(posts chi.Router) {
			posts.Get("/thread/{threadID}", h.Post.ListByThread)
			posts.Get("/{id}/attachment", h.Post.Attachment)
			posts.With(requireAuth).Post("/", h.Post.Create)
			posts.With(requireAuth).Put("/{id}", h.Post.Update)
			posts.With(requireAuth).Delete("/{id}", h.Post.Delete)
			posts.With(requireAuth, requireAdmin).Delete("/{id}/moderate", h.Post.Moderate)
			posts.With(requireAuth).Post("/{id}/attachment", h.Post.UploadAttachment)
		})

		api.Route("/likes", func(likes chi.Router) {
			likes.With(requireAuth).Post("/toggle", h.Like.Toggle)
			likes.With(authMiddleware.OptionalAuth).Get("/{targetType}/{targetID}", h.Like.Counts)
		})

		api.Route("/reports", func(reports chi.Router) {
			reports.Use(requireAuth)
			reports.Post("/", h.Report.Create)
			reports.With(requireAdmin).Get("/", h.Report.List)
			reports.With(requireAdmin).Put("/{id}/status", h.Report.UpdateStatus)
			reports.With(requireAdmin).Post("/{id}/warning", h.Report.Warn)
		})

		api.Route("/notifications", func(notifications chi.Router) {
			notifications.Use(middleware.QueryToken, requireAuth)
			notifications.Get("/", h.Notification.List)
			notifications.Get("/stream", h.Notification.Stream)
			notifications.Post("/mark-read", h.Notification.MarkRead)
		})

		api.Route("/logs", func(logs chi.Router) {
			logs.Use(requireAuth)
			logs.With(requireAdmin).Get("/", h.Activity.List)
			logs.Get("/my-activity", h.Activity.Mine)
			logs.Get("/user-activity/{userID}", h.Activity.ForUser)
		})

		api.With(requireAuth).Post("/uploads", h.Upload.Upload)
	})

	return r
}
