// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/userplane/internal/model"
)

// ErrDuplicateLogin はログイン名の一意制約違反を表す。
// 登録の競合は想定内の回復可能な結果として呼び出し側に返す。
var ErrDuplicateLogin = errors.New("login already exists")

// ErrAccountNotFound は更新対象のアカウントが存在しないことを表す。
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// Create はアカウントを作成する。
	// ログイン名が重複する場合はErrDuplicateLoginを返す。
	Create(ctx context.Context, account *model.Account) error

	// FindByLogin は正規化済みログイン名でアカウントを検索する。見つからない場合はnilを返す。
	FindByLogin(ctx context.Context, login string) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// UpdateStatus はアカウントの状態を更新する。
	// 対象が存在しない場合はErrAccountNotFoundを返す。
	UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	// 期限切れの行もそのまま返す。期限判定は検証側の責務とし、
	// 検証を読み取り専用・冪等に保つ。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByAccountID は指定アカウントの全セッションを削除する。
	DeleteByAccountID(ctx context.Context, accountID string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// Upsert はプロフィールを冪等に作成または更新する。
	Upsert(ctx context.Context, profile *model.Profile) error

	// FindByAccountID は指定アカウントのプロフィールを取得する。見つからない場合はnilを返す。
	FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を記録する。
	Create(ctx context.Context, notification *model.Notification) error

	// ListByAccountID は指定アカウントの通知を新しい順に最大50件返す。
	ListByAccountID(ctx context.Context, accountID string) ([]*model.Notification, error)

	// CountByAccountID は指定アカウントの通知件数を返す。
	CountByAccountID(ctx context.Context, accountID string) (int, error)
}
