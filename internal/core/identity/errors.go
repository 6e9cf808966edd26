package identity

import "errors"

var (
	ErrInvalidRemoteID  = errors.New("identity: invalid remote id")
	ErrInvalidType      = errors.New("identity: invalid entity type")
	ErrDuplicateLocalID = errors.New("identity: local id mapped by more than one remote id")
	ErrFixedConflict    = errors.New("identity: fixed remote id already mapped to a different local id")
	ErrLocalIDTaken     = errors.New("identity: local id already owned by another remote id")
	ErrExhausted        = errors.New("identity: could not generate a unique local id")
)
