package identity

import "context"

// Store は永続化済みマッピングの読み出しを抽象化します。
// 新規マッピングの書き込みは同期スクリプトのトランザクション内で行われます。
type Store interface {
	LoadMappings(ctx context.Context) ([]Mapping, error)
}
