package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/closetly/internal/model"
)

// PostgresWardrobeRepo はPostgreSQLを使用した衣類アイテムリポジトリ。
type PostgresWardrobeRepo struct {
	db *sql.DB
}

// NewPostgresWardrobeRepo はPostgresWardrobeRepoを生成する。
func NewPostgresWardrobeRepo(db *sql.DB) *PostgresWardrobeRepo {
	return &PostgresWardrobeRepo{db: db}
}

// ListByUserID はユーザーの全アイテムを作成日時の昇順（投入順）で返す。
func (r *PostgresWardrobeRepo) ListByUserID(ctx context.Context, userID string) ([]model.WardrobeItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, category, image_url, created_at
		 FROM wardrobe_items
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wardrobe items: %w", err)
	}
	defer rows.Close()

	var items []model.WardrobeItem
	for rows.Next() {
		var item model.WardrobeItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Category, &item.ImageURL, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wardrobe item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wardrobe items: %w", err)
	}

	return items, nil
}

// Create はアイテムを作成する。
func (r *PostgresWardrobeRepo) Create(ctx context.Context, item *model.WardrobeItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wardrobe_items (id, user_id, name, category, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.UserID, item.Name, item.Category, item.ImageURL, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wardrobe item: %w", err)
	}
	return nil
}

// DeleteByIDAndUserID は指定ユーザー所有のアイテムを削除する。
// 削除された場合はtrueを返す。
func (r *PostgresWardrobeRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wardrobe_items WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete wardrobe item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ WardrobeRepository = (*PostgresWardrobeRepo)(nil)
