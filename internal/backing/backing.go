// Package backing supplies the raw memory that arenas and pools carve up.
//
// A Source hands out zeroed byte slices and takes them back. The default OS
// source maps anonymous memory straight from the kernel so arena buffers live
// outside the Go heap; Heap falls back to ordinary slices.
package backing

import (
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidSize indicates a non-positive allocation request.
	ErrInvalidSize = errors.New("backing: size must be positive")

	// ErrLimit indicates a Limited source refused a request above its cap.
	ErrLimit = errors.New("backing: request exceeds source limit")

	// ErrNotOwned indicates Release was handed a buffer the source did not issue.
	ErrNotOwned = errors.New("backing: buffer not issued by this source")
)

// Source provides backing buffers.
type Source interface {
	// Alloc returns a zeroed buffer of exactly size bytes.
	Alloc(size int) ([]byte, error)
	// Release returns a buffer obtained from Alloc. The buffer must not be used afterwards.
	Release(b []byte) error
}

// OS is the platform source: anonymous mmap on unix, VirtualAlloc on windows,
// the Go heap elsewhere.
var OS Source = osSource{}

// Heap allocates from the Go heap. Release is a no-op.
var Heap Source = heapSource{}

type heapSource struct{}

func (heapSource) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "heap alloc %d", size)
	}
	return make([]byte, size), nil
}

func (heapSource) Release([]byte) error { return nil }

// Limited wraps src and refuses any single request larger than max bytes.
func Limited(src Source, max int) Source {
	return limited{src: src, max: max}
}

type limited struct {
	src Source
	max int
}

func (l limited) Alloc(size int) ([]byte, error) {
	if size > l.max {
		return nil, errors.Wrapf(ErrLimit, "alloc %d > limit %d", size, l.max)
	}
	return l.src.Alloc(size)
}

func (l limited) Release(b []byte) error { return l.src.Release(b) }

// PoisonByte is written over every buffer a Tracker releases.
const PoisonByte = 0xDD

// Tracker wraps a Source, counts outstanding buffers and poisons released
// heap buffers so stale reads show up as 0xDD instead of plausible data.
type Tracker struct {
	src Source

	mu       sync.Mutex
	live     map[*byte]int
	allocs   int
	releases int
}

// NewTracker returns a Tracker over src.
func NewTracker(src Source) *Tracker {
	return &Tracker{src: src, live: make(map[*byte]int)}
}

// Alloc implements Source.
func (t *Tracker) Alloc(size int) ([]byte, error) {
	b, err := t.src.Alloc(size)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[&b[0]] = len(b)
	t.allocs++
	return b, nil
}

// Release implements Source.
func (t *Tracker) Release(b []byte) error {
	if len(b) == 0 {
		return errors.Wrap(ErrNotOwned, "empty buffer")
	}
	t.mu.Lock()
	if _, ok := t.live[&b[0]]; !ok {
		t.mu.Unlock()
		return errors.Wrapf(ErrNotOwned, "buffer of %d bytes", len(b))
	}
	delete(t.live, &b[0])
	t.releases++
	t.mu.Unlock()

	if t.src == Heap {
		for i := range b {
			b[i] = PoisonByte
		}
	}
	return t.src.Release(b)
}

// Outstanding reports how many buffers are allocated and not yet released.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Counts reports total Alloc and Release calls that succeeded.
func (t *Tracker) Counts() (allocs, releases int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocs, t.releases
}
