package snapshot

import "errors"

var (
	ErrUnknownCollection = errors.New("snapshot: unknown collection")
	ErrInvalidWeekNumber = errors.New("snapshot: invalid week number")
	ErrInvalidWeekData   = errors.New("snapshot: invalid schedule data")
)
