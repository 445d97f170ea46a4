package handle

import "github.com/cockroachdb/errors"

// Handle is a reference to one object in a Heap. It holds only the
// identifier, so it stays valid across grow and compact. Copies of a Handle
// share the object; Take moves ownership to a new Handle.
type Handle struct {
	id   ID
	heap *Heap
}

// NewHandle allocates one object of size bytes and returns a Handle to it.
func (h *Heap) NewHandle(size int) (Handle, error) {
	id, err := h.Allocate(size, 1)
	if err != nil {
		return Handle{}, err
	}
	return Handle{id: id, heap: h}, nil
}

// Handle wraps an existing identifier. The identifier is not checked; an
// unknown one yields a Handle whose Valid reports false.
func (h *Heap) Handle(id ID) Handle {
	return Handle{id: id, heap: h}
}

// ID returns the identifier, or InvalidID for an empty Handle.
func (r *Handle) ID() ID { return r.id }

// Valid reports whether the Handle names a live object.
func (r *Handle) Valid() bool {
	return r.heap != nil && r.id != InvalidID && r.heap.Contains(r.id)
}

// Bytes returns the object's payload, looked up afresh, or nil.
func (r *Handle) Bytes() []byte {
	if r.heap == nil {
		return nil
	}
	return r.heap.Bytes(r.id)
}

// Size returns the object's payload capacity, or 0.
func (r *Handle) Size() int {
	if r.heap == nil {
		return 0
	}
	return r.heap.Size(r.id)
}

// Take returns a Handle owning the identifier and empties r.
func (r *Handle) Take() Handle {
	out := *r
	*r = Handle{}
	return out
}

// Release frees the object and empties r. Releasing an empty Handle returns
// ErrUnknownIdentifier.
func (r *Handle) Release() error {
	if r.heap == nil {
		return errors.Wrap(ErrUnknownIdentifier, "release of empty handle")
	}
	if err := r.heap.Release(r.id); err != nil {
		return err
	}
	*r = Handle{}
	return nil
}
