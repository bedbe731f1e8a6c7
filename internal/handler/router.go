package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/marsblog/internal/metrics"
	"github.com/hitoshi/marsblog/internal/middleware"
	"github.com/hitoshi/marsblog/internal/storage"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger        *slog.Logger
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	MetricsRoute  http.Handler

	// ミドルウェア依存
	AdminResolver middleware.AdminResolver
	RateLimiter   *middleware.RateLimiter
	CSRFConfig    middleware.CSRFConfig
	MediaOrigin   string

	// 公開ページ
	PublicService PublicPostService
	PublicConfig  PublicHandlerConfig

	// 購読
	SubscriptionService SubscriptionServiceInterface

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 管理画面
	AdminService AdminPostService
	Presigner    storage.Presigner
	Seeder       Seeder
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Logging → Metrics → Recovery → SecurityHeaders
//
// 言語別ルートはLanguageMiddlewareで {lang} を検証し、管理ルートは
// AdminSessionMiddleware → CSRFMiddleware の順で保護する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.MediaOrigin))

	publicHandler := NewPublicHandler(deps.PublicService, deps.PublicConfig)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	adminHandler := NewAdminHandler(deps.AdminService, deps.Presigner, deps.Seeder)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsRoute != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsRoute)
	}

	r.Get("/", RootRedirect)

	// --- 購読 ---
	r.With(deps.RateLimiter.Middleware(middleware.ScopeSubscribe)).Post("/subscribe", subHandler.Subscribe)
	r.With(deps.RateLimiter.Middleware(middleware.ScopeSubscribe)).Post("/unsubscribe", subHandler.Unsubscribe)

	// --- 管理画面 ---
	r.Route("/admin", func(r chi.Router) {
		r.With(deps.RateLimiter.Middleware(middleware.ScopeLogin)).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		// 認証が必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAdminSessionMiddleware(deps.AdminResolver))
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Get("/", adminHandler.Dashboard)
			r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)
			r.Get("/subscribers", subHandler.ListSubscribers)
			r.Post("/uploads", adminHandler.PresignUpload)
			r.Post("/seed", adminHandler.Seed)

			r.Route("/posts", func(r chi.Router) {
				r.Post("/", adminHandler.CreatePost)
				r.Get("/{id}", adminHandler.GetPost)
				r.Put("/{id}", adminHandler.UpdatePost)
				r.Delete("/{id}", adminHandler.DeletePost)
			})
		})
	})

	// --- 言語別の公開ページ ---
	r.Route("/{"+middleware.LanguageParam+"}", func(r chi.Router) {
		r.Use(middleware.NewLanguageMiddleware())

		r.Get("/", publicHandler.Home)
		r.Get("/archive", publicHandler.Archive)
		r.Get("/search", publicHandler.Search)
		r.Get("/rss.xml", publicHandler.Feed)
		r.Get("/posts/{slug}", publicHandler.Post)
		r.With(deps.RateLimiter.Middleware(middleware.ScopeLike)).Post("/posts/{slug}/like", publicHandler.Like)
	})

	return r
}
