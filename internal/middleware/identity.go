package middleware

import (
	"context"
	"fmt"
	"net/http"
)

// IdentityHeader はゲートウェイが解決済みアイデンティティを伝搬するヘッダー。
// 業務サービスはゲートウェイの背後に配置され、このヘッダーを信頼する。
// 追加の認可判定は業務サービス側では行わない。
const IdentityHeader = "X-Account-Id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// accountIDContextKey はリクエストコンテキストにアカウントIDを格納するためのキー。
var accountIDContextKey = contextKey("account_id")

// NewIdentityMiddleware はゲートウェイが付与したアイデンティティヘッダーを読み取り、
// アカウントIDをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーが無いリクエストには401 Unauthorizedを返す。
func NewIdentityMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := r.Header.Get(IdentityHeader)
			if accountID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDContextKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext はリクエストコンテキストからアカウントIDを取得する。
// アイデンティティミドルウェアを通過したリクエストでのみ有効。
func AccountIDFromContext(ctx context.Context) (string, error) {
	accountID, ok := ctx.Value(accountIDContextKey).(string)
	if !ok || accountID == "" {
		return "", fmt.Errorf("account ID not found in context")
	}
	return accountID, nil
}

// ContextWithAccountID はコンテキストにアカウントIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDContextKey, accountID)
}
