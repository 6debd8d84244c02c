package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresBlobRepo はPostgreSQLを使用したクライアントブロブリポジトリ。
// ブラウザのローカルストレージ互換の名前付きJSON文字列を(user_id, name)単位で保持する。
type PostgresBlobRepo struct {
	db *sql.DB
}

// NewPostgresBlobRepo はPostgresBlobRepoを生成する。
func NewPostgresBlobRepo(db *sql.DB) *PostgresBlobRepo {
	return &PostgresBlobRepo{db: db}
}

// Get は指定ユーザーの名前付きブロブを取得する。未設定の場合は空文字列を返す。
func (r *PostgresBlobRepo) Get(ctx context.Context, userID, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_blobs WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get client blob: %w", err)
	}

	return value, nil
}

// Set は指定ユーザーの名前付きブロブを全量書き換える。
func (r *PostgresBlobRepo) Set(ctx context.Context, userID, name, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_blobs (user_id, name, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, name)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		userID, name, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set client blob: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BlobRepository = (*PostgresBlobRepo)(nil)
