// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// AccountStatus はアカウントの状態を表す。
type AccountStatus string

const (
	// StatusActive はログイン可能な通常状態。
	StatusActive AccountStatus = "active"
	// StatusInactive は一時的に無効化された状態。
	StatusInactive AccountStatus = "inactive"
	// StatusBlocked は管理者によりブロックされた状態。
	StatusBlocked AccountStatus = "blocked"
)

// ParseAccountStatus は文字列をAccountStatusに変換する。
// 未知の値の場合はエラーを返す。
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch AccountStatus(s) {
	case StatusActive, StatusInactive, StatusBlocked:
		return AccountStatus(s), nil
	default:
		return "", fmt.Errorf("unknown account status: %q", s)
	}
}

// Account はプラットフォームの利用アカウントを表す。
// PasswordHashはbcryptハッシュであり、平文パスワードは保持しない。
type Account struct {
	ID           string
	Login        string
	PasswordHash string
	Status       AccountStatus
	CreatedAt    time.Time
}

// Session はステートフル戦略で発行されるサーバー側セッションを表す。
// Tokenが主キーであり、行の削除が即時の失効を意味する。
type Session struct {
	Token     string
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Identity はトークン検証により解決された認証済みアイデンティティを表す。
// ステートレス戦略ではStatusは発行時点のスナップショット、
// ステートフル戦略では検証時点の最新値となる。
type Identity struct {
	AccountID string
	Login     string
	Status    AccountStatus
}
