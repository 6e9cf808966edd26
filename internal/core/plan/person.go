package plan

import "strings"

// SplitName は表示名を先頭トークンと残りに分割します。残りは空文字列になることがあります。
func SplitName(name string) (first, rest string) {
	name = strings.TrimSpace(name)
	first, rest, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(rest)
}

// ParseAddress は "通り, 郵便番号 市" 形式の住所を分解します。
// カンマ以降の先頭トークンが数字のみの場合だけ郵便番号とみなし、それ以外は残り全体を市とします。
// カンマがない場合は全体を通りとして扱います。
func ParseAddress(address string) (street, postalCode, city string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", "", ""
	}

	head, tail, found := strings.Cut(address, ",")
	if !found {
		return address, "", ""
	}

	street = strings.TrimSpace(head)
	tail = strings.TrimSpace(tail)

	token, remainder, hasSpace := strings.Cut(tail, " ")
	if hasSpace && isNumeric(token) {
		return street, token, strings.TrimSpace(remainder)
	}
	return street, "", tail
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
