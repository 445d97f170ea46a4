package segment

import "github.com/cockroachdb/errors"

var (
	// ErrForeignAddress indicates an address that does not name an allocated
	// segment of this list (out of range, misaligned, already free, or inside a hole).
	ErrForeignAddress = errors.New("segment: foreign address")

	// ErrBufferTooSmall indicates New was given a buffer that cannot hold a minimum segment.
	ErrBufferTooSmall = errors.New("segment: buffer too small")

	// ErrInvalidSplit indicates Split arguments that cannot carve the segment.
	ErrInvalidSplit = errors.New("segment: invalid split")

	// ErrCorrupt indicates Validate found the buffer and the hole list out of agreement.
	ErrCorrupt = errors.New("segment: corrupt layout")
)
