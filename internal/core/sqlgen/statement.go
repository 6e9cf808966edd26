package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Statement は $n プレースホルダ付きの SQL と引数の組です。
type Statement struct {
	SQL  string
	Args []any
}

// Raw は引数を持たない Statement を生成します。
func Raw(sql string) Statement {
	return Statement{SQL: sql}
}

// Inline はプレースホルダを Literal で描画した値に置き換えた SQL を返します。
// パラメータバインディングが使えない経路 (スクリプトファイル) 向けです。
func (s Statement) Inline() (string, error) {
	var (
		b       strings.Builder
		inQuote bool
		sql     = s.SQL
	)
	b.Grow(len(sql) + 16*len(s.Args))

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == '\'' {
			inQuote = !inQuote
			b.WriteByte(c)
			continue
		}
		if c != '$' || inQuote || i+1 >= len(sql) || !isDigit(sql[i+1]) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(sql) && isDigit(sql[j]) {
			j++
		}
		n, _ := strconv.Atoi(sql[i+1 : j])
		if n < 1 || n > len(s.Args) {
			return "", fmt.Errorf("%w: $%d", ErrPlaceholder, n)
		}
		lit, err := Literal(s.Args[n-1])
		if err != nil {
			return "", fmt.Errorf("$%d: %w", n, err)
		}
		b.WriteString(lit)
		i = j - 1
	}
	return b.String(), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
