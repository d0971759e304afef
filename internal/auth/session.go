package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hitoshi/userplane/internal/model"
	"github.com/hitoshi/userplane/internal/repository"
)

// SessionStrategy はサーバー側セッション行を参照する不透明トークンの
// 発行・検証・失効を行う。行の削除が即時の失効を意味する。
type SessionStrategy struct {
	sessions repository.SessionRepository
	accounts repository.AccountRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStrategy はSessionStrategyを生成する。
func NewSessionStrategy(sessions repository.SessionRepository, accounts repository.AccountRepository, ttl time.Duration) *SessionStrategy {
	return &SessionStrategy{
		sessions: sessions,
		accounts: accounts,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue は推測不能な不透明トークンを生成し、セッション行として永続化する。
func (s *SessionStrategy) Issue(ctx context.Context, account *model.Account) (string, time.Time, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	session := &model.Session{
		Token:     token,
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to save session: %w", err)
	}

	return token, expiresAt, nil
}

// Validate はセッション行を照会してアイデンティティを返す。
// 行が存在しない場合はErrTokenInvalid、期限切れの場合はErrTokenExpiredを返す。
// 期限切れ行の削除は別途のクリーンアップジョブに委ね、検証経路では
// 状態を変更しない（読み取り専用・冪等）。
// Statusは検証時点のアカウント行から再導出する。
func (s *SessionStrategy) Validate(ctx context.Context, token string) (*model.Identity, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrTokenInvalid
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session account: %w", err)
	}
	if account == nil {
		return nil, ErrTokenInvalid
	}

	return &model.Identity{
		AccountID: account.ID,
		Login:     account.Login,
		Status:    account.Status,
	}, nil
}

// Revoke はセッション行を削除し、トークンを即時に失効させる。
func (s *SessionStrategy) Revoke(ctx context.Context, token string) (bool, error) {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return true, nil
}

// RevokeAccount は指定アカウントの全セッションを削除する。
func (s *SessionStrategy) RevokeAccount(ctx context.Context, accountID string) error {
	if err := s.sessions.DeleteByAccountID(ctx, accountID); err != nil {
		return fmt.Errorf("failed to revoke account sessions: %w", err)
	}
	return nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// compile-time interface check
var _ TokenStrategy = (*SessionStrategy)(nil)
