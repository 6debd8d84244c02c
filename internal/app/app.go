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

	"github.com/hitoshi/closetly/internal/auth"
	"github.com/hitoshi/closetly/internal/config"
	"github.com/hitoshi/closetly/internal/database"
	"github.com/hitoshi/closetly/internal/handler"
	"github.com/hitoshi/closetly/internal/logger"
	"github.com/hitoshi/closetly/internal/metrics"
	"github.com/hitoshi/closetly/internal/middleware"
	"github.com/hitoshi/closetly/internal/outfit"
	"github.com/hitoshi/closetly/internal/profile"
	"github.com/hitoshi/closetly/internal/removebg"
	"github.com/hitoshi/closetly/internal/repository"
	"github.com/hitoshi/closetly/internal/security"
	"github.com/hitoshi/closetly/internal/storage"
	"github.com/hitoshi/closetly/internal/wardrobe"
	"github.com/hitoshi/closetly/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	resetTokenRepo := repository.NewPostgresResetTokenRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	wardrobeRepo := repository.NewPostgresWardrobeRepo(db)
	avatarRepo := repository.NewPostgresAvatarRepo(db)
	blobRepo := repository.NewPostgresBlobRepo(db)

	// 3. セキュリティサービスとオブジェクトストアの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewNameSanitizer()

	store, err := storage.NewDiskStore(cfg.MediaDir, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	// 4. ドメインサービスの初期化
	var mailer auth.Mailer
	if cfg.SMTPHost != "" {
		mailer = auth.NewSMTPMailer(auth.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		// SMTP未設定の環境ではリセットURLをログに出すだけのメーラーを使う
		mailer = auth.NewNopMailer(slog.Default())
	}

	authService := auth.NewService(
		userRepo, sessionRepo, resetTokenRepo, mailer, sanitizer,
		auth.Config{
			SessionMaxAge: cfg.SessionMaxAge,
			ResetTokenTTL: cfg.ResetTokenTTL,
			ResetBaseURL:  cfg.BaseURL + "/reset-password",
		},
		slog.Default(),
	)

	profileService := profile.NewService(profileRepo, userRepo, sanitizer)

	notifier := wardrobe.NewNotifier()
	wardrobeService := wardrobe.NewService(wardrobeRepo, store, sanitizer, notifier, slog.Default())
	importer := wardrobe.NewImporter(wardrobeService, ssrfGuard, cfg.ImportFetchTimeout, cfg.UploadMaxSize)
	avatarService := wardrobe.NewAvatarService(avatarRepo, store, slog.Default())

	outfitManager := outfit.NewManager(blobRepo, slog.Default())

	removeBgClient := removebg.NewClient(
		&http.Client{Timeout: 30 * time.Second},
		cfg.RemoveBgAPIKey,
		slog.Default(),
	)
	removeBgClient.SetEndpoint(cfg.RemoveBgEndpoint)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService: profileService,

		WardrobeService:  wardrobeService,
		WardrobeImporter: importer,
		AvatarService:    avatarService,

		OutfitManager: outfitManager,
		BlobRepo:      blobRepo,

		RemoveBgClient: removeBgClient,

		IdentityResolver:   authService,
		ProfileFetcher:     profileService,
		WardrobeSubscriber: wardrobeService,
		OutfitReleaser:     outfitManager,

		Collector: collector,
		Gatherer:  registry,

		MediaDir:      store.MediaDir(),
		UploadMaxSize: cfg.UploadMaxSize,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、クリーンアップジョブを周期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. オブジェクトストアの初期化
	store, err := storage.NewDiskStore(cfg.MediaDir, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(
		db,
		cleanup.NewSQLMediaReferenceSource(db),
		store,
		slog.Default(),
	)
	cleanupJob.MediaGracePeriod = cfg.MediaGracePeriod

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("media_grace_period", cfg.MediaGracePeriod),
	)

	// 起動直後に1回実行し、以降は周期実行する
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
