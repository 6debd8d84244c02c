package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/hitoshi/closetly/internal/metrics"
	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/session"
	"github.com/hitoshi/closetly/internal/wardrobe"
)

// wsWriteTimeout は1フレームの書き込みタイムアウト。
const wsWriteTimeout = 10 * time.Second

// WardrobeSubscriberInterface はワードローブ更新購読のインターフェース。
type WardrobeSubscriberInterface interface {
	// Subscribe はユーザーのワードローブ更新を購読する。初期スナップショットが1件先行配信される。
	Subscribe(ctx context.Context, userID string) (*wardrobe.Watcher, error)
}

// OutfitReleaserInterface はユーザー単位のアウトフィットコントローラー破棄のインターフェース。
type OutfitReleaserInterface interface {
	// Release はユーザーのコントローラーを破棄する。
	Release(userID string)
}

// wardrobeSnapshotMessage はクライアントに配信するスナップショットメッセージ。
type wardrobeSnapshotMessage struct {
	Type     string                            `json:"type"`
	Wardrobe map[string][]wardrobeItemResponse `json:"wardrobe"`
}

// WSHandler はワードローブのリアルタイム購読を提供するWebSocketハンドラー。
// 接続ごとにセッションコントローラーを構築し、活性化でワードローブの
// 購読を開始、非活性化（切断）で購読とアウトフィットコントローラーを破棄する。
type WSHandler struct {
	resolver   session.IdentityResolver
	profiles   session.ProfileFetcher
	subscriber WardrobeSubscriberInterface
	releaser   OutfitReleaserInterface
	collector  metrics.MetricsCollector
	logger     *slog.Logger

	mu        sync.Mutex
	connCount int
}

// NewWSHandler はWSHandlerを生成する。
// collectorがnilの場合、接続数の記録はスキップされる。
func NewWSHandler(resolver session.IdentityResolver, profiles session.ProfileFetcher, subscriber WardrobeSubscriberInterface, releaser OutfitReleaserInterface, collector metrics.MetricsCollector, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		resolver:   resolver,
		profiles:   profiles,
		subscriber: subscriber,
		releaser:   releaser,
		collector:  collector,
		logger:     logger,
	}
}

// ServeHTTP はWebSocket接続を処理する。
// GET /api/ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. セッションCookieの確認（アップグレード前に認証する）
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeUnauthorized(w)
		return
	}

	// 2. WebSocketへアップグレード
	// CORSミドルウェアがHTTP層でオリジンを制限済みのため、ここでは検証しない。
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	// 3. セッションコントローラーの構築とコールバック登録
	ctrl := session.NewController(h.resolver, h.profiles, h.logger)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		watcher *wardrobe.Watcher
		userID  string
	)

	ctrl.OnActivate(func(identity model.Identity) {
		userID = identity.ID
		wt, subErr := h.subscriber.Subscribe(ctx, identity.ID)
		if subErr != nil {
			h.logger.Error("failed to subscribe wardrobe updates",
				slog.String("user_id", identity.ID),
				slog.String("error", subErr.Error()),
			)
			return
		}
		watcher = wt
	})

	ctrl.OnDeactivate(func() {
		if watcher != nil {
			watcher.Close()
		}
		if userID != "" {
			h.releaser.Release(userID)
		}
	})

	// 4. セッションの活性化
	if err := ctrl.Start(ctx, cookie.Value); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}
	defer ctrl.Stop()

	if watcher == nil {
		conn.Close(websocket.StatusInternalError, "subscription unavailable")
		return
	}

	h.trackConnection(+1)
	defer h.trackConnection(-1)

	h.logger.Info("websocket connected", slog.String("user_id", userID))

	// 5. 配信ループと受信ループ
	go h.writeLoop(ctx, cancel, conn, watcher)
	h.readLoop(ctx, cancel, conn)

	conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("websocket disconnected", slog.String("user_id", userID))
}

// writeLoop はウォッチャーのスナップショットをクライアントに配信する。
// ウォッチャーのチャネルが閉じられるか、書き込みに失敗すると終了する。
func (h *WSHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, watcher *wardrobe.Watcher) {
	defer cancel()

	for {
		select {
		case snapshot, ok := <-watcher.Snapshots():
			if !ok {
				return
			}
			if err := h.writeSnapshot(ctx, conn, snapshot); err != nil {
				h.logger.Warn("failed to write wardrobe snapshot", slog.String("error", err.Error()))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop はクライアントからのメッセージを処理する。
// "ping" には "pong" を返し、その他のメッセージは無視する。
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		if string(data) == "ping" {
			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, []byte("pong"))
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

// writeSnapshot はスナップショットメッセージを1件書き込む。
func (h *WSHandler) writeSnapshot(ctx context.Context, conn *websocket.Conn, snapshot model.WardrobeByCategory) error {
	msg := wardrobeSnapshotMessage{
		Type:     "wardrobe.snapshot",
		Wardrobe: toWardrobeResponse(snapshot),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer writeCancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// trackConnection は接続数を増減しメトリクスに反映する。
func (h *WSHandler) trackConnection(delta int) {
	h.mu.Lock()
	h.connCount += delta
	count := h.connCount
	h.mu.Unlock()

	if h.collector != nil {
		h.collector.SetWSConnections(count)
	}
}
