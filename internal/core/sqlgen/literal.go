package sqlgen

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Literal は値を SQL リテラルに変換します。スクリプトへ値を埋め込む唯一の経路です。
//   - nil / nil ポインタ: NULL
//   - bool: TRUE / FALSE
//   - 整数・浮動小数点・decimal: 引用符なしの数値
//   - それ以外: シングルクォートで囲み、内部のクォートを二重化
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case decimal.Decimal:
		return x.String(), nil
	case string:
		return quote(x)
	case json.RawMessage:
		return quote(string(x))
	case []byte:
		return quote(string(x))
	case uuid.UUID:
		return quote(x.String())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL", nil
		}
		return Literal(rv.Elem().Interface())
	}
	if s, ok := v.(fmt.Stringer); ok {
		return quote(s.String())
	}
	switch rv.Kind() {
	case reflect.String:
		return quote(rv.String())
	case reflect.Bool:
		return Literal(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func quote(s string) (string, error) {
	if strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("%w: string contains NUL byte", ErrUnsupportedValue)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
}
