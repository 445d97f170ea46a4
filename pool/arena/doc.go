// Package arena implements a growable, defragmenting heap over a single
// backing buffer.
//
// # Overview
//
// An Arena owns exactly one buffer obtained from a backing.Source and manages
// it with a segment.List. When the list cannot satisfy a request the arena
// recovers space in one of two ways:
//
//   - Grow: allocate a larger buffer (capacity scaled by Config.GrowthFactor
//     until the request fits, capped at Config.MaxSize), copy every live
//     object into it, publish the new addresses, release the old buffer.
//   - Compact: walk holes in address order and move the first live object
//     found above each hole that fits into it. Best effort, single pass.
//
// Both need the complete set of live objects. The arena learns it from a
// Directory (normally a handle.Table) attached with Attach. Relocation is
// refused when the directory does not account for every live segment, since
// any untracked raw address would dangle after the move.
//
// # Usage Example
//
//	a := arena.New(arena.DefaultConfig)
//	if err := a.Init(4096); err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	addr, err := a.Allocate(128)
//	if errors.Is(err, arena.ErrNoFit) {
//	    // handle exhaustion
//	}
//	copy(a.Payload(addr), data)
//	_ = a.Free(addr)
//
// # Thread Safety
//
// Arena instances are not thread-safe. Grow and Compact rewrite the address of
// every live object, so concurrent readers must be excluded externally.
package arena
