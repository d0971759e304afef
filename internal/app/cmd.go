package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandAuth は認証サービスモードで起動することを示す。
	CommandAuth Command = "auth"
	// CommandPlatform は業務サービス（プロフィール・通知・レポート）モードで起動することを示す。
	CommandPlatform Command = "platform"
	// CommandGateway はセッションゲートウェイモードで起動することを示す。
	CommandGateway Command = "gateway"
	// CommandWorker はセッションクリーンアップワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandAuthを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandAuth
	}

	switch args[0] {
	case "auth":
		return CommandAuth
	case "platform":
		return CommandPlatform
	case "gateway":
		return CommandGateway
	case "worker":
		return CommandWorker
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandAuth
	}
}
