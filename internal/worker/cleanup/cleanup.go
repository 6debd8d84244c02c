// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッション・使用済みまたは期限切れのパスワード再設定トークンを削除し、
// どのアイテム・アバターからも参照されていないメディアオブジェクトを掃除する。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/closetly/internal/storage"
)

// defaultMediaGracePeriod は孤児メディアを削除対象とするまでの猶予期間。
// アップロード直後でまだレコードが書かれていないオブジェクトを誤削除しないための余裕。
const defaultMediaGracePeriod = 24 * time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// MediaReferenceSource は参照中のメディアURL集合を取得するインターフェース。
type MediaReferenceSource interface {
	// ReferencedImageURLs はwardrobe_itemsとavatarsが参照する全image_urlを返す。
	ReferencedImageURLs(ctx context.Context) (map[string]struct{}, error)
}

// SQLMediaReferenceSource はDBから参照中URLを収集するMediaReferenceSource実装。
type SQLMediaReferenceSource struct {
	db *sql.DB
}

// NewSQLMediaReferenceSource はSQLMediaReferenceSourceを生成する。
func NewSQLMediaReferenceSource(db *sql.DB) *SQLMediaReferenceSource {
	return &SQLMediaReferenceSource{db: db}
}

// ReferencedImageURLs はwardrobe_itemsとavatarsが参照する全image_urlを返す。
func (s *SQLMediaReferenceSource) ReferencedImageURLs(ctx context.Context) (map[string]struct{}, error) {
	query := `SELECT image_url FROM wardrobe_items UNION SELECT image_url FROM avatars`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("参照中メディアURLの取得に失敗: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("参照中メディアURLの読み取りに失敗: %w", err)
		}
		urls[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参照中メディアURLの走査に失敗: %w", err)
	}

	return urls, nil
}

var _ MediaReferenceSource = (*SQLMediaReferenceSource)(nil)

// CleanupJob は期限切れデータの自動削除ジョブ。
type CleanupJob struct {
	db     Executor
	refs   MediaReferenceSource
	store  storage.ObjectStore
	logger *slog.Logger

	// MediaGracePeriod より新しいメディアオブジェクトは未参照でも削除しない。
	MediaGracePeriod time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
// refsまたはstoreがnilの場合、メディア掃除はスキップされる。
func NewCleanupJob(db Executor, refs MediaReferenceSource, store storage.ObjectStore, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:               db,
		refs:             refs,
		store:            store,
		logger:           logger,
		MediaGracePeriod: defaultMediaGracePeriod,
	}
}

// Run はクリーンアップを1回実行する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	// 1. 期限切れセッションの削除
	expiredSessions, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	// 2. 使用済み・期限切れの再設定トークンの削除
	staleTokens, err := j.deleteStaleResetTokens(ctx)
	if err != nil {
		return err
	}

	// 3. 孤児メディアの掃除
	orphanedMedia := 0
	if j.refs != nil && j.store != nil {
		orphanedMedia, err = j.sweepOrphanedMedia(ctx)
		if err != nil {
			return err
		}
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("expired_sessions", expiredSessions),
		slog.Int64("stale_reset_tokens", staleTokens),
		slog.Int("orphaned_media", orphanedMedia),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteExpiredSessions は有効期限を過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}
	return result.RowsAffected()
}

// deleteStaleResetTokens は使用済みまたは期限切れの再設定トークンを削除する。
func (j *CleanupJob) deleteStaleResetTokens(ctx context.Context) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE used_at IS NOT NULL OR expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("再設定トークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("再設定トークンの削除に失敗: %w", err)
	}
	return result.RowsAffected()
}

// sweepOrphanedMedia はどのレコードからも参照されず、猶予期間を過ぎた
// メディアオブジェクトを削除する。
// アップロード成功後のレコード書き込み失敗で残ったオブジェクトの回収が目的。
func (j *CleanupJob) sweepOrphanedMedia(ctx context.Context) (int, error) {
	referenced, err := j.refs.ReferencedImageURLs(ctx)
	if err != nil {
		return 0, err
	}

	objects, err := j.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("メディアオブジェクトの一覧取得に失敗: %w", err)
	}

	cutoff := time.Now().Add(-j.MediaGracePeriod)
	deleted := 0
	for _, obj := range objects {
		if obj.ModTime.After(cutoff) {
			continue
		}
		if _, ok := referenced[j.store.PublicURL(obj.Key)]; ok {
			continue
		}

		if err := j.store.Delete(ctx, obj.Key); err != nil {
			j.logger.Warn("孤児メディアの削除に失敗しました",
				slog.String("key", obj.Key),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
	}

	return deleted, nil
}
