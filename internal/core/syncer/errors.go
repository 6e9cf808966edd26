package syncer

import "errors"

var (
	ErrLoadMappings = errors.New("syncer: load existing mappings")
	ErrWriteScript  = errors.New("syncer: write script")
	ErrApply        = errors.New("syncer: apply script")
)
