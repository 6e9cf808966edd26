package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUndefinedTable  = "42P01"
	codeUniqueViolation = "23505"
)

// IsUndefinedTable はテーブルが存在しないことによるエラーかを判定します。
func IsUndefinedTable(err error) bool {
	return hasCode(err, codeUndefinedTable)
}

// IsUniqueViolation は一意制約違反かを判定します。
// 既存マッピングと同じ主キーの挿入は、計画後に別の同期が走ったことを示します。
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
