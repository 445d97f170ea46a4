package handle

import (
	"sync"

	"github.com/joshuapare/poolkit/pool/arena"
)

// Synchronized is a mutex-guarded Heap for hosts that share one heap between
// goroutines. Every method holds the lock for the whole call, so grow and
// compact never interleave with another access.
type Synchronized struct {
	mu sync.Mutex
	h  *Heap
}

// NewSynchronized wraps h. h must not be used directly afterwards.
func NewSynchronized(h *Heap) *Synchronized {
	return &Synchronized{h: h}
}

// Allocate is the locked form of Heap.Allocate.
func (s *Synchronized) Allocate(size, count int) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Allocate(size, count)
}

// Release is the locked form of Heap.Release.
func (s *Synchronized) Release(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Release(id)
}

// ReleaseN is the locked form of Heap.ReleaseN.
func (s *Synchronized) ReleaseN(id ID, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.ReleaseN(id, count)
}

// Read is the locked form of Heap.Read. The copy completes before the lock is
// released, so p never observes a relocation in progress.
func (s *Synchronized) Read(id ID, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Read(id, p)
}

// Write is the locked form of Heap.Write.
func (s *Synchronized) Write(id ID, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Write(id, p)
}

// Size is the locked form of Heap.Size.
func (s *Synchronized) Size(id ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Size(id)
}

// Len is the locked form of Heap.Len.
func (s *Synchronized) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Len()
}

// Compact is the locked form of Heap.Compact.
func (s *Synchronized) Compact() (arena.CompactStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Compact()
}

// Do runs fn with the lock held. Slices obtained from the Heap inside fn
// must not escape it.
func (s *Synchronized) Do(fn func(h *Heap) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.h)
}

// Close is the locked form of Heap.Close.
func (s *Synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Close()
}
