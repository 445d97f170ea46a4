package segment

import (
	"testing"

	"github.com/joshuapare/poolkit/internal/format"
)

// Benchmark_Allocate_Release benchmarks an allocate/release pair on an empty list.
func Benchmark_Allocate_Release(b *testing.B) {
	l := newTestList(b, 1<<20)

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		a, ok := l.Allocate(64 + i%64)
		if !ok {
			b.Fatal("allocate failed")
		}
		if err := l.Release(a); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_Allocate_Fragmented benchmarks first fit behind many small holes.
func Benchmark_Allocate_Fragmented(b *testing.B) {
	l := newTestList(b, 1<<20)
	var live []format.Addr
	for {
		a, ok := l.Allocate(16)
		if !ok {
			break
		}
		live = append(live, a)
	}
	// Free the first half, every other segment: 24-byte holes a 64-byte request skips.
	for i := 0; i < len(live)/2; i += 2 {
		if err := l.Release(live[i]); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a, ok := l.Allocate(64)
		if !ok {
			b.Fatal("allocate failed")
		}
		if err := l.Release(a); err != nil {
			b.Fatal(err)
		}
	}
}
