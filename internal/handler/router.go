package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/closetly/internal/metrics"
	"github.com/hitoshi/closetly/internal/middleware"
	"github.com/hitoshi/closetly/internal/repository"
	"github.com/hitoshi/closetly/internal/session"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DB がこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	ProfileService ProfileServiceInterface

	// ワードローブ
	WardrobeService  WardrobeServiceInterface
	WardrobeImporter WardrobeImporterInterface
	AvatarService    AvatarServiceInterface

	// アウトフィット
	OutfitManager OutfitManagerInterface
	BlobRepo      repository.BlobRepository

	// 背景除去プロキシ
	RemoveBgClient RemoveBgClientInterface

	// WebSocket購読
	IdentityResolver   session.IdentityResolver
	ProfileFetcher     session.ProfileFetcher
	WardrobeSubscriber WardrobeSubscriberInterface
	OutfitReleaser     OutfitReleaserInterface

	// 観測
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	// 静的配信とアップロード
	MediaDir      string
	UploadMaxSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (認証ルート: CSRF) /
//	(APIルート: CSRF → Session → RateLimit(General))
//
// ヘルスチェック・メトリクス・メディア配信・背景除去プロキシは認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	wardrobeHandler := NewWardrobeHandler(deps.WardrobeService, deps.WardrobeImporter, deps.AvatarService, deps.Collector, deps.UploadMaxSize)
	outfitHandler := NewOutfitHandler(deps.OutfitManager, deps.BlobRepo, deps.Collector)
	removeBgHandler := NewRemoveBgHandler(deps.RemoveBgClient, logger)
	wsHandler := NewWSHandler(deps.IdentityResolver, deps.ProfileFetcher, deps.WardrobeSubscriber, deps.OutfitReleaser, deps.Collector, logger)

	csrfMiddleware := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// アップロード済み画像の読み取り専用配信
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaDir))))

	// 背景除去プロキシ（元のSPAと同じく認証チェーンの外に置く）
	r.Handle("/api/removebg", removeBgHandler)

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		r.Use(csrfMiddleware)

		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Post("/reauthenticate", authHandler.Reauthenticate)
		r.Post("/password", authHandler.ChangePassword)
		r.Post("/password/reset", authHandler.RequestPasswordReset)
		r.Post("/password/reset/confirm", authHandler.ConfirmPasswordReset)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ワードローブ管理
		r.Route("/api/wardrobe", func(r chi.Router) {
			r.Get("/", wardrobeHandler.ListWardrobe)

			// 画像を伴う登録はアップロード専用レート制限を追加
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/", wardrobeHandler.AddItem)
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/import", wardrobeHandler.ImportItem)

			r.Delete("/{id}", wardrobeHandler.RemoveItem)
		})

		// アバター
		r.Route("/api/avatar", func(r chi.Router) {
			r.Get("/", wardrobeHandler.GetAvatar)
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/", wardrobeHandler.UploadAvatar)
		})

		// プロフィール
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Put("/", profileHandler.UpdateProfile)
		})

		// アウトフィット編成・保存
		r.Route("/api/outfit/current", func(r chi.Router) {
			r.Get("/", outfitHandler.GetCurrentOutfit)
			r.Post("/items", outfitHandler.AddOutfitItem)
			r.Delete("/items/{index}", outfitHandler.RemoveOutfitItem)
		})
		r.Route("/api/outfits", func(r chi.Router) {
			r.Get("/", outfitHandler.ListOutfits)
			r.Post("/", outfitHandler.SaveOutfit)
			r.Delete("/{id}", outfitHandler.DeleteOutfit)
		})

		// レガシーキャッシュブロブ
		r.Route("/api/cache", func(r chi.Router) {
			r.Get("/wardrobe-items", outfitHandler.GetWardrobeCache)
			r.Put("/wardrobe-items", outfitHandler.PutWardrobeCache)
		})

		// リアルタイム購読
		r.Get("/api/ws", wsHandler.ServeHTTP)
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if checker != nil {
			if err := checker.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
