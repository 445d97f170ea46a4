package aligned

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/backing"
)

// Class describes one pool in a Set.
type Class struct {
	BlockSize  int
	BlockCount int
}

// DefaultClasses are small, medium, large and giant block pools.
var DefaultClasses = []Class{
	{BlockSize: 4, BlockCount: 20000},
	{BlockSize: 32, BlockCount: 20000},
	{BlockSize: 128, BlockCount: 20000},
	{BlockSize: 512, BlockCount: 20000},
}

// Ref names an allocation in a Set: the class index and the offset inside
// that class's pool.
type Ref struct {
	Class int
	Off   int
}

// Set routes each request to the smallest class whose block holds it.
// Requests larger than every block go to the largest class as a multi-block run.
type Set struct {
	pools []*Pool
}

// NewSet creates one pool per class, ordered by block size.
func NewSet(classes []Class, src backing.Source) (*Set, error) {
	if len(classes) == 0 {
		return nil, errors.Wrap(ErrInvalidSize, "no classes")
	}
	sorted := slices.SortedFunc(slices.Values(classes), func(a, b Class) int {
		return a.BlockSize - b.BlockSize
	})
	s := &Set{pools: make([]*Pool, 0, len(sorted))}
	for _, c := range sorted {
		p, err := New(c.BlockSize, c.BlockCount, src)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.pools = append(s.pools, p)
	}
	return s, nil
}

// ClassFor returns the index of the class that serves n bytes.
func (s *Set) ClassFor(n int) int {
	for i, p := range s.pools {
		if n <= p.BlockSize() {
			return i
		}
	}
	return len(s.pools) - 1
}

// Alloc reserves n bytes from the class that fits them.
func (s *Set) Alloc(n int) (Ref, []byte, error) {
	c := s.ClassFor(n)
	off, b, err := s.pools[c].Alloc(n)
	if err != nil {
		return Ref{}, nil, err
	}
	return Ref{Class: c, Off: off}, b, nil
}

// Free releases r.
func (s *Set) Free(r Ref) error {
	if r.Class < 0 || r.Class >= len(s.pools) {
		return errors.Wrapf(ErrForeignAddress, "class %d", r.Class)
	}
	return s.pools[r.Class].Free(r.Off)
}

// Bytes returns the bytes of r, or nil.
func (s *Set) Bytes(r Ref) []byte {
	if r.Class < 0 || r.Class >= len(s.pools) {
		return nil
	}
	return s.pools[r.Class].Bytes(r.Off)
}

// Pools returns the pools in class order.
func (s *Set) Pools() []*Pool { return s.pools }

// Close releases every pool.
func (s *Set) Close() error {
	var errs error
	for _, p := range s.pools {
		errs = errors.CombineErrors(errs, p.Close())
	}
	s.pools = nil
	return errs
}
