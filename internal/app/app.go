package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/marsblog/internal/auth"
	"github.com/hitoshi/marsblog/internal/config"
	"github.com/hitoshi/marsblog/internal/database"
	"github.com/hitoshi/marsblog/internal/handler"
	"github.com/hitoshi/marsblog/internal/logger"
	"github.com/hitoshi/marsblog/internal/metrics"
	"github.com/hitoshi/marsblog/internal/middleware"
	"github.com/hitoshi/marsblog/internal/notify"
	"github.com/hitoshi/marsblog/internal/post"
	"github.com/hitoshi/marsblog/internal/repository"
	"github.com/hitoshi/marsblog/internal/security"
	"github.com/hitoshi/marsblog/internal/seed"
	"github.com/hitoshi/marsblog/internal/storage"
	"github.com/hitoshi/marsblog/internal/subscription"
	"github.com/hitoshi/marsblog/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Loadで検証済みのためエラーにはならない
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandMigrateI18n:
		return runMigrateI18n(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はHTTPサーバーモードで起動する。
// DB接続とマイグレーションの後に全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := slog.Default()

	// 1. DB接続とスキーマ適用
	db, err := database.Connect(ctx, cfg.DatabaseURL, retryPolicy(cfg), log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established")

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// 2. リポジトリの初期化
	postRepo := repository.NewPostgresPostRepo(db)
	subscriberRepo := repository.NewPostgresSubscriberRepo(db)
	adminRepo := repository.NewPostgresAdminRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 3. 認証と初期管理者
	authService := auth.NewService(adminRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})
	if _, err := authService.EnsureDefaultAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to ensure default admin: %w", err)
	}

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 5. 外部サービス（未設定の場合は機能を無効化して起動する）
	presigner, err := storage.NewS3Presigner(ctx, storageConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	notifier, err := notify.New(notifyConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// 6. ドメインサービスの初期化
	postService := post.NewService(
		postRepo, subscriberRepo,
		security.NewContentSanitizer(), notifier, collector,
		post.Site{Title: cfg.SiteTitle, Description: cfg.SiteDesc, BaseURL: cfg.BaseURL},
		log,
	)
	subService := subscription.NewService(subscriberRepo, collector, log)
	seeder := handler.SeederFunc(func(ctx context.Context) (*seed.Result, error) {
		return seed.Run(ctx, postRepo, log)
	})

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitPublic))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:        log,
		HealthChecker: db,
		Metrics:       collector,
		MetricsRoute:  metrics.Handler(reg),

		AdminResolver: authService,
		RateLimiter:   rateLimiter,
		CSRFConfig:    middleware.CSRFConfig{CookieSecure: cfg.CookieSecure},
		MediaOrigin:   cfg.S3CDNURL,

		PublicService: postService,
		PublicConfig: handler.PublicHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieSecure: cfg.CookieSecure,
		},

		SubscriptionService: subService,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		AdminService: postService,
		Presigner:    presigner,
		Seeder:       seeder,
	}

	router := handler.NewRouter(deps)

	// 8. 期限切れセッションの定期削除
	go cleanup.NewCleanupJob(authService, log).Start(ctx, cleanup.DefaultInterval)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down HTTP server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runMigrateI18n は第2言語カラムを追加する単独マイグレーションを実行する。
func runMigrateI18n(cfg *config.Config) error {
	added, err := database.EnsureSecondaryLanguageColumns(context.Background(), cfg.DatabaseURL, retryPolicy(cfg), slog.Default())
	if err != nil {
		return fmt.Errorf("secondary language migration failed: %w", err)
	}
	if len(added) == 0 {
		slog.Info("secondary language columns already present")
	}
	return nil
}

// runSeed はデモ記事を投入する。既存のスラッグはスキップする。
func runSeed(cfg *config.Config) error {
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL, retryPolicy(cfg), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	res, err := seed.Run(ctx, repository.NewPostgresPostRepo(db), slog.Default())
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed",
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func retryPolicy(cfg *config.Config) database.RetryPolicy {
	return database.RetryPolicy{Attempts: cfg.DBConnectRetries, Delay: cfg.DBConnectDelay}
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		AccessKey: cfg.S3Key,
		SecretKey: cfg.S3Secret,
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		CDNURL:    cfg.S3CDNURL,
	}
}

func notifyConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	}
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
