package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/userplane/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Upsert はプロフィールを冪等に作成または更新する。
func (r *PostgresProfileRepo) Upsert(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (account_id, full_name, bio, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account_id)
		 DO UPDATE SET full_name = EXCLUDED.full_name, bio = EXCLUDED.bio, updated_at = EXCLUDED.updated_at`,
		profile.AccountID, profile.FullName, profile.Bio, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// FindByAccountID は指定アカウントのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, full_name, bio, updated_at
		 FROM profiles
		 WHERE account_id = $1`,
		accountID,
	).Scan(&profile.AccountID, &profile.FullName, &profile.Bio, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
