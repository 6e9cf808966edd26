package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Upsert は INSERT ... ON CONFLICT 文の組み立て内容です。
// UpdateColumns が空の場合は DO NOTHING になります。
// 更新時は値が変わった行だけを書き換えるため、同じデータでの再実行は 0 行更新になります。
type Upsert struct {
	Table           string
	Columns         []string
	Values          []any
	Casts           map[string]string
	ConflictColumns []string
	UpdateColumns   []string
}

// Statement は Upsert を Statement に変換します。
func (u Upsert) Statement() (Statement, error) {
	if u.Table == "" || len(u.Columns) == 0 {
		return Statement{}, fmt.Errorf("%w: table and columns are required", ErrInvalidUpsert)
	}
	if len(u.Columns) != len(u.Values) {
		return Statement{}, fmt.Errorf("%w: %s has %d columns but %d values", ErrInvalidUpsert, u.Table, len(u.Columns), len(u.Values))
	}
	if len(u.ConflictColumns) == 0 {
		return Statement{}, fmt.Errorf("%w: %s needs conflict columns", ErrInvalidUpsert, u.Table)
	}

	placeholders := make([]string, len(u.Columns))
	for i, col := range u.Columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		if cast, ok := u.Casts[col]; ok {
			placeholders[i] += "::" + cast
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		u.Table,
		strings.Join(u.Columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(u.ConflictColumns, ", "),
	)

	if len(u.UpdateColumns) == 0 {
		b.WriteString(" DO NOTHING")
		return Statement{SQL: b.String(), Args: u.Values}, nil
	}

	sets := make([]string, len(u.UpdateColumns))
	current := make([]string, len(u.UpdateColumns))
	excluded := make([]string, len(u.UpdateColumns))
	for i, col := range u.UpdateColumns {
		sets[i] = col + " = EXCLUDED." + col
		current[i] = u.Table + "." + col
		excluded[i] = "EXCLUDED." + col
	}
	fmt.Fprintf(&b, " DO UPDATE SET %s WHERE (%s) IS DISTINCT FROM (%s)",
		strings.Join(sets, ", "),
		strings.Join(current, ", "),
		strings.Join(excluded, ", "),
	)

	return Statement{SQL: b.String(), Args: u.Values}, nil
}
