package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// IsAligned reports whether n sits on an Alignment boundary.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}

// SegmentSize returns the total segment size (header included) needed to hold
// a payload of n bytes. Non-positive payloads, and payloads whose segment
// would exceed MaxSegmentSize, return 0.
//
// Example:
//
//	SegmentSize(1)  = 16
//	SegmentSize(8)  = 16
//	SegmentSize(12) = 24
func SegmentSize(n int) int {
	if n <= 0 || n > MaxSegmentSize-HeaderSize {
		return 0
	}
	size := Align8(n) + HeaderSize
	if size < MinSegmentSize {
		return MinSegmentSize
	}
	return size
}
