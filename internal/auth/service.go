package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/userplane/internal/model"
	"github.com/hitoshi/userplane/internal/repository"
)

// LoginResult はログイン成功時の発行結果を表す。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *model.Identity
}

// Service は認証に関するビジネスロジックを提供する。
// トークン戦略には依存せず、TokenStrategyを通じて発行・検証・失効を行う。
type Service struct {
	accounts repository.AccountRepository
	strategy TokenStrategy
}

// NewService はServiceを生成する。
func NewService(accounts repository.AccountRepository, strategy TokenStrategy) *Service {
	return &Service{
		accounts: accounts,
		strategy: strategy,
	}
}

// Register は新規アカウントを作成する。
// ログイン名はトリム・小文字化で正規化する。statusが空の場合はactiveとなる。
// ログイン名の重複は想定内の競合としてDUPLICATE_LOGINを返す。
func (s *Service) Register(ctx context.Context, login, password, status string) (*model.Account, error) {
	login = normalizeLogin(login)
	password = strings.TrimSpace(password)
	if login == "" || password == "" {
		return nil, model.NewInvalidInputError("login and password are required")
	}

	st := model.StatusActive
	if status != "" {
		parsed, err := model.ParseAccountStatus(strings.ToLower(strings.TrimSpace(status)))
		if err != nil {
			return nil, model.NewInvalidStatusError(status)
		}
		st = parsed
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:           uuid.New().String(),
		Login:        login,
		PasswordHash: hash,
		Status:       st,
		CreatedAt:    time.Now(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateLogin) {
			return nil, model.NewDuplicateLoginError(login)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("login", account.Login),
		slog.String("status", string(account.Status)),
	)

	return account, nil
}

// Login は認証情報を検証し、設定された戦略でトークンを発行する。
//
// ログイン名不明とパスワード不一致は同一のINVALID_CREDENTIALSを返す
// （アカウント列挙対策）。不明なログイン名に対してもダミーのbcrypt比較を
// 実行し、両経路の計算コストを揃える。
// すべての検証が成功しない限りトークンは発行されない。
func (s *Service) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = normalizeLogin(login)
	password = strings.TrimSpace(password)
	if login == "" || password == "" {
		return nil, model.NewInvalidInputError("login and password are required")
	}

	account, err := s.accounts.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		CompareDummy(password)
		return nil, model.NewInvalidCredentialsError()
	}

	if account.Status != model.StatusActive {
		slog.Warn("login rejected for non-active account",
			slog.String("account_id", account.ID),
			slog.String("status", string(account.Status)),
		)
		return nil, model.NewAccountNotActiveError(account.Status)
	}

	if !VerifyPassword(account.PasswordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.strategy.Issue(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.Time("expires_at", expiresAt),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity: &model.Identity{
			AccountID: account.ID,
			Login:     account.Login,
			Status:    account.Status,
		},
	}, nil
}

// Validate はトークンを検証し、紐づくアイデンティティを返す。
// 空トークンはいかなる照会よりも前にMISSING_TOKENとして拒否する。
// 失敗理由は統一エラーフォーマットにマップして返す。
func (s *Service) Validate(ctx context.Context, token string) (*model.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, model.NewMissingTokenError()
	}

	identity, err := s.strategy.Validate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return nil, model.NewTokenExpiredError()
		case errors.Is(err, ErrTokenInvalid):
			return nil, model.NewTokenInvalidError()
		default:
			return nil, fmt.Errorf("failed to validate token: %w", err)
		}
	}

	return identity, nil
}

// Logout はトークンを失効させる。
// ステートフル戦略ではセッション行の削除、ステートレス戦略ではno-opとなる。
// 戻り値のrevokedはトークンが実際に即時失効したかを表す。
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, model.NewMissingTokenError()
	}

	revoked, err := s.strategy.Revoke(ctx, token)
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}

	slog.Info("logout completed", slog.Bool("revoked", revoked))
	return revoked, nil
}

// GetAccount は指定IDのアカウントを取得する。
func (s *Service) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(id)
	}
	return account, nil
}

// SetStatus はアカウントの状態を変更する。
// activeから外れる変更の場合は発行済みトークンの失効も試みる
// （ステートレス戦略ではno-opとなり、既発行トークンは自然期限まで有効）。
func (s *Service) SetStatus(ctx context.Context, id, status string) (model.AccountStatus, error) {
	st, err := model.ParseAccountStatus(strings.ToLower(strings.TrimSpace(status)))
	if err != nil {
		return "", model.NewInvalidStatusError(status)
	}

	if err := s.accounts.UpdateStatus(ctx, id, st); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", model.NewAccountNotFoundError(id)
		}
		return "", fmt.Errorf("failed to update status: %w", err)
	}

	if st != model.StatusActive {
		if err := s.strategy.RevokeAccount(ctx, id); err != nil {
			return "", fmt.Errorf("failed to revoke account tokens: %w", err)
		}
	}

	slog.Info("account status updated",
		slog.String("account_id", id),
		slog.String("status", string(st)),
	)

	return st, nil
}

// normalizeLogin はログイン名をトリムして小文字化する。
func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
