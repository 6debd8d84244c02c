package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/closetly/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, email, created_at, updated_at
		 FROM user_profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.FirstName, &profile.LastName, &profile.Email, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by user ID: %w", err)
	}

	return profile, nil
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, first_name, last_name, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.UserID, profile.FirstName, profile.LastName, profile.Email, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// UpdateNames は姓名のみをマージ更新する。
func (r *PostgresProfileRepo) UpdateNames(ctx context.Context, userID, firstName, lastName string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_profiles
		 SET first_name = $1, last_name = $2, updated_at = now()
		 WHERE user_id = $3`,
		firstName, lastName, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile names: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", userID)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
