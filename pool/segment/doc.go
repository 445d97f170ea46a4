// Package segment manages one contiguous byte buffer as a chain of
// variable-size segments.
//
// # Layout
//
// Every segment starts with an 8-byte little-endian signed size header
// (format.HeaderSize) covering the whole segment. A positive size marks a free
// segment ("hole"), a negative size marks an allocated one:
//
//	+--------+-----------------+--------+---------------------------+
//	|  -32   | payload (24 B)  |  +96   | free                      |
//	+--------+-----------------+--------+---------------------------+
//	^ off 0  ^ Addr 8          ^ off 32
//
// Addresses handed to callers point just past the header, so the size of any
// payload is recoverable in O(1) from the buffer itself.
//
// # Free list
//
// Holes are additionally tracked in an address-ordered slice of descriptors.
// Allocation is first-fit over that slice; the chosen hole is split when the
// remainder can still hold a minimum segment, otherwise the remainder is
// absorbed. Release finds the predecessor by binary search and coalesces with
// both neighbours when they are byte-adjacent, so no two holes are ever
// adjacent at rest and
//
//	sum(segment sizes) == len(buffer)
//
// holds between calls.
//
// # Thread Safety
//
// List instances are not thread-safe. Callers must synchronize access
// externally.
package segment
