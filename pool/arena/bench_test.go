package arena

import (
	"testing"

	"github.com/joshuapare/poolkit/internal/backing"
)

// Benchmark_Allocate_FastPath benchmarks allocate/free pairs that never grow.
func Benchmark_Allocate_FastPath(b *testing.B) {
	a, _, _ := newTestArena(b, 1<<20, 1<<20)

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		addr, err := a.Allocate(32 + i%96)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(addr); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_Compact benchmarks compaction of a half-empty arena with
// alternating live and free segments.
func Benchmark_Compact(b *testing.B) {
	b.ReportAllocs()
	for range b.N {
		b.StopTimer()
		a := New(Config{MaxSize: 64 << 10, GrowthFactor: 1.5, Source: backing.Heap})
		if err := a.Init(64 << 10); err != nil {
			b.Fatal(err)
		}
		dir := newMapDir()
		a.Attach(dir)
		var ids []uint64
		for {
			addr, err := a.Allocate(56)
			if err != nil {
				break
			}
			ids = append(ids, dir.add(addr))
		}
		for i, id := range ids {
			if i%2 == 0 {
				if err := a.Free(dir.m[id]); err != nil {
					b.Fatal(err)
				}
				delete(dir.m, id)
			}
		}
		b.StartTimer()

		if _, err := a.Compact(); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_Grow benchmarks growth from 4KB to 1MB with live objects copied
// at every step.
func Benchmark_Grow(b *testing.B) {
	b.ReportAllocs()
	for range b.N {
		a := New(Config{MaxSize: 1 << 20, GrowthFactor: 1.5, Source: backing.Heap})
		if err := a.Init(4 << 10); err != nil {
			b.Fatal(err)
		}
		dir := newMapDir()
		a.Attach(dir)
		for a.Used() < 1<<19 {
			addr, err := a.Allocate(248)
			if err != nil {
				b.Fatal(err)
			}
			dir.add(addr)
		}
	}
}
