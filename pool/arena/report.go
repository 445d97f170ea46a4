package arena

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/poolkit/pool/segment"
)

// Report is a point-in-time view of arena occupancy.
type Report struct {
	Capacity int            // buffer size
	Used     int            // bytes in live segments, headers included
	Free     int            // bytes in holes, headers included
	Live     int            // live objects
	Peak     int            // high-water mark of Used
	Largest  int            // largest hole
	Holes    []segment.Hole // address order
}

// Occupancy returns Used as a percentage of Capacity.
func (r Report) Occupancy() float64 {
	if r.Capacity == 0 {
		return 0
	}
	return 100 * float64(r.Used) / float64(r.Capacity)
}

// Fragmentation returns the share of free bytes outside the largest hole,
// as a percentage. Zero means all free space is contiguous.
func (r Report) Fragmentation() float64 {
	if r.Free == 0 {
		return 0
	}
	return 100 * float64(r.Free-r.Largest) / float64(r.Free)
}

// String renders the report with grouped byte counts, one hole per line.
func (r Report) String() string {
	var sb strings.Builder
	p := message.NewPrinter(language.English)
	p.Fprintf(&sb, "capacity %d bytes, used %d (%.1f%%), free %d in %d holes, %d live objects\n",
		r.Capacity, r.Used, r.Occupancy(), r.Free, len(r.Holes), r.Live)
	p.Fprintf(&sb, "largest hole %d bytes, fragmentation %.1f%%, peak used %d\n",
		r.Largest, r.Fragmentation(), r.Peak)
	for i, h := range r.Holes {
		p.Fprintf(&sb, "  hole %3d  off %8d  size %8d\n", i, h.Off, h.Size)
	}
	return sb.String()
}

// Report snapshots the current free list. It has no side effects.
func (a *Arena) Report() Report {
	if a.list == nil {
		return Report{}
	}
	r := Report{
		Capacity: a.list.Capacity(),
		Used:     a.list.UsedBytes(),
		Free:     a.list.FreeBytes(),
		Live:     a.list.Live(),
		Peak:     a.stats.PeakUsed,
		Largest:  a.list.LargestHole(),
		Holes:    make([]segment.Hole, 0, a.list.HoleCount()),
	}
	for h := range a.list.Holes() {
		r.Holes = append(r.Holes, h)
	}
	return r
}

// DumpFreeList writes the current report to w.
func (a *Arena) DumpFreeList(w io.Writer) error {
	if a.list == nil {
		return ErrNotInitialized
	}
	_, err := io.WriteString(w, a.Report().String())
	return err
}
