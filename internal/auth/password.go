package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash は存在しないログイン名に対してもbcrypt比較を1回実行するための
// 固定ハッシュ。どの入力とも一致しないことだけが要件で、
// ログイン名の有無で応答時間に差が出ることを防ぐ。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword は平文パスワードのbcryptハッシュを生成する。
// ソルトはbcryptがハッシュ内に埋め込む。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword はbcryptハッシュと平文パスワードを比較する。
// bcrypt内部の定数時間比較を使用し、生文字列の比較は行わない。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy は固定ハッシュに対するbcrypt比較を実行する。
// アカウントが存在しない場合のログイン経路で呼び出し、
// 存在する場合と同等の計算コストを消費させる。結果は常に破棄される。
func CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
