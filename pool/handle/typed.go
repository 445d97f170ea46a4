package handle

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Load decodes a fixed-size value of type T from the payload of id using
// little-endian encoding. T must be a fixed-size type as accepted by
// encoding/binary.
func Load[T any](h *Heap, id ID) (T, error) {
	var v T
	b := h.Bytes(id)
	if b == nil {
		return v, errors.Wrapf(ErrUnknownIdentifier, "load %d", id)
	}
	if _, err := binary.Decode(b, binary.LittleEndian, &v); err != nil {
		return v, errors.Wrapf(err, "load %d", id)
	}
	return v, nil
}

// Store encodes v into the payload of id using little-endian encoding.
func Store[T any](h *Heap, id ID, v T) error {
	b := h.Bytes(id)
	if b == nil {
		return errors.Wrapf(ErrUnknownIdentifier, "store %d", id)
	}
	if _, err := binary.Encode(b, binary.LittleEndian, v); err != nil {
		return errors.Wrapf(err, "store %d", id)
	}
	return nil
}

// Make allocates an object sized for v, stores v in it and returns a Handle.
func Make[T any](h *Heap, v T) (Handle, error) {
	size := binary.Size(v)
	if size < 0 {
		return Handle{}, errors.Newf("handle: %T has no fixed size", v)
	}
	r, err := h.NewHandle(max(size, 1))
	if err != nil {
		return Handle{}, err
	}
	if err := Store(h, r.id, v); err != nil {
		_ = r.Release()
		return Handle{}, err
	}
	return r, nil
}
