package buf

import (
	"math"

	"github.com/cockroachdb/errors"
)

// ErrSpan is returned by CheckSpan when a byte range does not fit a buffer.
var ErrSpan = errors.New("buf: span out of bounds")

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// the result would overflow int or either operand is negative.
// Used for count * elementSize reservations.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckSpan validates that [off, off+n) lies within a buffer of bufLen bytes
// and returns the end offset.
//
//	end, err := buf.CheckSpan(len(data), off, size)
//	if err != nil {
//	    return errors.Wrap(err, "release")
//	}
func CheckSpan(bufLen, off, n int) (int, error) {
	if off < 0 {
		return 0, errors.Wrapf(ErrSpan, "negative offset %d", off)
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrSpan, "negative length %d", n)
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, errors.Wrapf(ErrSpan, "overflow: offset=%d + length=%d", off, n)
	}
	if end > bufLen {
		return 0, errors.Wrapf(ErrSpan, "end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	end, err := CheckSpan(len(b), off, n)
	if err != nil {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, err := CheckSpan(len(b), off, n)
	return err == nil
}
