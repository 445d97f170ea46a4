package arena

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/pool/segment"
)

var (
	// ErrBackingAllocationFailed indicates the backing source could not supply a buffer.
	ErrBackingAllocationFailed = errors.New("arena: backing allocation failed")

	// ErrNoFit indicates no contiguous space was found even after grow and compact.
	ErrNoFit = errors.New("arena: no fit")

	// ErrForeignAddress indicates Free was given an address this arena does not own.
	ErrForeignAddress = segment.ErrForeignAddress

	// ErrCapacityExceeded indicates growth would pass Config.MaxSize.
	ErrCapacityExceeded = errors.New("arena: capacity ceiling exceeded")

	// ErrNotInitialized indicates an operation on an arena without a buffer.
	ErrNotInitialized = errors.New("arena: not initialized")

	// ErrAlreadyInitialized indicates a second Init call.
	ErrAlreadyInitialized = errors.New("arena: already initialized")

	// ErrInvalidSize indicates a non-positive or oversized request.
	ErrInvalidSize = errors.New("arena: invalid size")

	// ErrUnrelocatable indicates live objects that the attached directory does not track.
	ErrUnrelocatable = errors.New("arena: live objects missing from directory")
)
