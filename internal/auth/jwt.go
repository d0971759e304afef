package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/userplane/internal/model"
)

// Claims はJWTトークンのペイロードを表す。
// 標準クレーム（sub/iss/iat/exp）に加えてログイン名と発行時点の状態を持つ。
type Claims struct {
	jwt.RegisteredClaims
	Login  string `json:"login"`
	Status string `json:"status"`
}

// JWTStrategy はHS256署名付きステートレストークンの発行・検証を行う。
// トークンは自己完結型であり、検証にサーバー側の状態を必要としない。
// 代償として、自然期限前の失効はできない。
type JWTStrategy struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTStrategy はJWTStrategyを生成する。
func NewJWTStrategy(secret []byte, issuer string, ttl time.Duration) *JWTStrategy {
	return &JWTStrategy{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はアカウントに紐づく署名付きトークンを発行する。
// Statusは発行時点のスナップショットとして埋め込まれる。
func (s *JWTStrategy) Issue(_ context.Context, account *model.Account) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Login:  account.Login,
		Status: string(account.Status),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate は署名・発行者・有効期限を検証し、ペイロードからアイデンティティを復元する。
// Statusは発行時点のスナップショットであり、ストアへの再照会は行わない
// （トークン有効期間を上限とする意図的な鮮度のトレードオフ）。
func (s *JWTStrategy) Validate(_ context.Context, token string) (*model.Identity, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	status, err := model.ParseAccountStatus(claims.Status)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &model.Identity{
		AccountID: claims.Subject,
		Login:     claims.Login,
		Status:    status,
	}, nil
}

// Revoke はno-op。自己完結型トークンはサーバー側に失効の記録先を持たず、
// 自然期限の経過によってのみ無効になる。常にrevoked=falseを返す。
func (s *JWTStrategy) Revoke(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// RevokeAccount はno-op。Revokeと同じ制約による。
func (s *JWTStrategy) RevokeAccount(_ context.Context, _ string) error {
	return nil
}

// compile-time interface check
var _ TokenStrategy = (*JWTStrategy)(nil)
