package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/closetly/internal/model"
)

// PostgresAvatarRepo はPostgreSQLを使用したアバターリポジトリ。
type PostgresAvatarRepo struct {
	db *sql.DB
}

// NewPostgresAvatarRepo はPostgresAvatarRepoを生成する。
func NewPostgresAvatarRepo(db *sql.DB) *PostgresAvatarRepo {
	return &PostgresAvatarRepo{db: db}
}

// Create はアバターレコードを追加する。既存レコードは置き換えない。
func (r *PostgresAvatarRepo) Create(ctx context.Context, avatar *model.Avatar) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO avatars (id, user_id, image_url, created_at)
		 VALUES ($1, $2, $3, $4)`,
		avatar.ID, avatar.UserID, avatar.ImageURL, avatar.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert avatar: %w", err)
	}
	return nil
}

// FindFirstByUserID はユーザーのアバターを1件返す。
// 複数存在する場合は作成日時の新しいものを採用する。見つからない場合はnilを返す。
func (r *PostgresAvatarRepo) FindFirstByUserID(ctx context.Context, userID string) (*model.Avatar, error) {
	avatar := &model.Avatar{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, image_url, created_at
		 FROM avatars
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID,
	).Scan(&avatar.ID, &avatar.UserID, &avatar.ImageURL, &avatar.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find avatar by user ID: %w", err)
	}

	return avatar, nil
}

// compile-time interface check
var _ AvatarRepository = (*PostgresAvatarRepo)(nil)
