package plan

import "errors"

var (
	ErrSnapshotRequired = errors.New("plan: snapshot is required")
	ErrMapperRequired   = errors.New("plan: mapper is required")
)
