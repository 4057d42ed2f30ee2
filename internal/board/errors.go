package board

import "errors"

// Sentinel errors returned (wrapped) by store mutators. Check with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrCrossBoard      = errors.New("column belongs to a different board")
	ErrColumnNotEmpty  = errors.New("column is not empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvariant       = errors.New("board invariant violated")
)
