// Package auth は認証情報の検証とトークンの発行・検証・失効を提供する。
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/userplane/internal/model"
)

// トークン検証の失敗理由。呼び出し側はいずれも未認証として扱う。
var (
	// ErrTokenMissing はトークンが提示されていないことを表す。
	ErrTokenMissing = errors.New("token is missing")
	// ErrTokenExpired はトークンの有効期限切れを表す。
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid は署名不正・発行者不一致・失効済みなど、
	// 期限切れ以外のあらゆる検証失敗を表す。
	ErrTokenInvalid = errors.New("token is invalid")
)

// TokenStrategy はトークンの発行・検証・失効の戦略インターフェース。
//
// 2つの正当な実装が存在する:
//   - JWTStrategy: 署名付き自己完結型トークン。サーバー側の状態を持たず、
//     自然期限前の失効はできない。
//   - SessionStrategy: サーバー側セッション行への参照となる不透明トークン。
//     行の削除が即時失効となる。
//
// 戦略は起動時の設定で1つだけ選択され、リクエストごとに混在することはない。
type TokenStrategy interface {
	// Issue は検証済みアカウントに対してトークンを発行する。
	Issue(ctx context.Context, account *model.Account) (token string, expiresAt time.Time, err error)

	// Validate はトークンを検証し、紐づくアイデンティティを返す。
	// 失敗時はErrTokenExpiredまたはErrTokenInvalidを返す。
	// 副作用を持たず、同一トークンに対して並行・反復呼び出しが安全であること。
	Validate(ctx context.Context, token string) (*model.Identity, error)

	// Revoke はトークンを失効させる。
	// 戻り値のrevokedはトークンが実際に即時失効の対象になったかを表す。
	// 自然期限前の失効をサポートしない実装ではno-opとなり、falseを返す。
	Revoke(ctx context.Context, token string) (revoked bool, err error)

	// RevokeAccount は指定アカウントの発行済みトークンをすべて失効させる。
	// 管理者によるブロック時に使用する。サポートしない実装ではno-opとなる。
	RevokeAccount(ctx context.Context, accountID string) error
}
