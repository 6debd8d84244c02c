package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/closetly/internal/metrics"
	"github.com/hitoshi/closetly/internal/middleware"
	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/outfit"
	"github.com/hitoshi/closetly/internal/wardrobe"
)

// --- モック定義 ---

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFn(ctx, id)
}

var (
	_ HealthChecker            = (*mockHealthChecker)(nil)
	_ middleware.SessionFinder = (*mockSessionFinder)(nil)
)

// newTestRouter は全ルートを備えたテスト用ルーターを構築する。
func newTestRouter(t *testing.T, healthErr error) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := newMockBlobStore()
	notifier := wardrobe.NewNotifier()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sessionFinder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}

	resolver := &mockIdentityResolver{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID == "valid-session" {
				return &model.User{ID: "user-1", Email: "user@example.com"}, nil
			}
			return nil, nil
		},
	}

	deps := &RouterDeps{
		HealthChecker:     &mockHealthChecker{err: healthErr},
		SessionFinder:     sessionFinder,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		CSRFConfig:        middleware.CSRFConfig{},
		Logger:            logger,

		AuthService: &mockAuthService{
			getCurrentUserFn: resolver.getCurrentUserFn,
		},
		AuthConfig: AuthHandlerConfig{SessionMaxAge: 3600},

		ProfileService: &mockProfileService{
			getFn: func(ctx context.Context, userID string) (*model.UserProfile, error) {
				return &model.UserProfile{UserID: userID, Email: "user@example.com"}, nil
			},
		},

		WardrobeService: &mockWardrobeService{
			listGroupedFn: func(ctx context.Context, userID string) (model.WardrobeByCategory, error) {
				return model.WardrobeByCategory{}, nil
			},
		},
		WardrobeImporter: &mockWardrobeImporter{},
		AvatarService: &mockAvatarService{
			getAvatarFn: func(ctx context.Context, userID string) (*model.Avatar, error) {
				return nil, nil
			},
		},

		OutfitManager: outfit.NewManager(blobs, logger),
		BlobRepo:      blobs,

		RemoveBgClient: &mockRemoveBgClient{configured: false},

		IdentityResolver:   resolver,
		ProfileFetcher:     &mockProfileFetcher{},
		WardrobeSubscriber: &notifierSubscriber{notifier: notifier, initial: model.WardrobeByCategory{}},
		OutfitReleaser:     &mockOutfitReleaser{},

		Collector: collector,
		Gatherer:  registry,

		MediaDir:      t.TempDir(),
		UploadMaxSize: testMaxUpload,
	}

	return NewRouter(deps)
}

func authedGet(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- テスト ---

func TestRouter_Health_ReturnsOK(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_Health_DBDown_ReturnsServiceUnavailable(t *testing.T) {
	router := newTestRouter(t, io.ErrUnexpectedEOF)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_Metrics_IsPublic(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_APIRoutes_RequireSession(t *testing.T) {
	router := newTestRouter(t, nil)

	targets := []string{
		"/api/wardrobe",
		"/api/avatar",
		"/api/profile",
		"/api/outfit/current",
		"/api/outfits",
		"/api/cache/wardrobe-items",
	}

	for _, target := range targets {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want %d", target, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestRouter_APIRoutes_WithValidSession_Succeed(t *testing.T) {
	router := newTestRouter(t, nil)

	targets := []string{
		"/api/wardrobe",
		"/api/avatar",
		"/api/profile",
		"/api/outfit/current",
		"/api/outfits",
		"/api/cache/wardrobe-items",
	}

	for _, target := range targets {
		rec := authedGet(router, target)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d, body: %s", target, rec.Code, http.StatusOK, rec.Body.String())
		}
	}
}

func TestRouter_MutatingRequest_WithoutCSRFToken_IsForbidden(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/outfits", strings.NewReader(`{"name":"x"}`))
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRouter_MutatingRequest_WithCSRFToken_ReachesHandler(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/outfits", strings.NewReader(`{"name":"x"}`))
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-1"})
	req.Header.Set("X-CSRF-Token", "token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 編成中が空なのでOUTFIT_EMPTYまで到達する
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d, body: %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
}

func TestRouter_RemoveBg_IsOutsideAuthChain(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/removebg", strings.NewReader("png"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 認証401ではなく、キー未設定の500が返る
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRouter_CSRFTokenEndpoint_IssuesToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("csrf_token cookie not issued")
	}
}

func TestRouter_CORSHeaders_AreSet(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}
