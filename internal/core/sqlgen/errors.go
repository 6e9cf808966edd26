package sqlgen

import "errors"

var (
	ErrUnsupportedValue = errors.New("sqlgen: unsupported literal value")
	ErrPlaceholder      = errors.New("sqlgen: placeholder without argument")
	ErrInvalidUpsert    = errors.New("sqlgen: invalid upsert")
)
