package handle

import "github.com/cockroachdb/errors"

var (
	// ErrDuplicateIdentifier indicates an insert of an ID that is already present.
	ErrDuplicateIdentifier = errors.New("handle: duplicate identifier")

	// ErrUnknownIdentifier indicates an ID that is not in the table.
	ErrUnknownIdentifier = errors.New("handle: unknown identifier")

	// ErrInvalidCount indicates a non-positive element count.
	ErrInvalidCount = errors.New("handle: count must be positive")
)
