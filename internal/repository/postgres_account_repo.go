package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/userplane/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// Create はアカウントを作成する。
// ログイン名が重複する場合はErrDuplicateLoginを返す。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, login, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.Login, account.PasswordHash, string(account.Status), account.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateLogin
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindByLogin は正規化済みログイン名でアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByLogin(ctx context.Context, login string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, login, password_hash, status, created_at
		 FROM accounts
		 WHERE login = $1`,
		login,
	).Scan(&account.ID, &account.Login, &account.PasswordHash, &account.Status, &account.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by login: %w", err)
	}

	return account, nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, login, password_hash, status, created_at
		 FROM accounts
		 WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.Login, &account.PasswordHash, &account.Status, &account.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}

	return account, nil
}

// UpdateStatus はアカウントの状態を更新する。
// 対象が存在しない場合はErrAccountNotFoundを返す。
func (r *PostgresAccountRepo) UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = $1 WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountAll は総アカウント数を返す。
func (r *PostgresAccountRepo) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// CountCreatedSince は指定時刻以降に作成されたアカウント数を返す。
func (r *PostgresAccountRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE created_at >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent accounts: %w", err)
	}
	return count, nil
}

// CountByStatus は状態ごとのアカウント数を返す。
func (r *PostgresAccountRepo) CountByStatus(ctx context.Context) (map[model.AccountStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM accounts GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AccountStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[model.AccountStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
