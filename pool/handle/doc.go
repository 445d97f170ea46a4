// Package handle adds stable identifiers on top of a relocating arena.
//
// Arena objects move during grow and compact, so callers never keep raw
// addresses. Instead every object gets an ID from a Table, and every access
// looks the current address up again:
//
//	h, err := handle.New(arena.DefaultConfig)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	id, err := h.Allocate(32, 4) // four independent 32-byte objects
//	if err != nil {
//	    return err
//	}
//	_, _ = h.Write(id, []byte("hello"))
//	_ = h.ReleaseN(id, 4)
//
// # Identifiers
//
// IDs are minted from a strictly increasing counter that is never reset, so an
// ID held after its release can never name a newer object. InvalidID (0) is
// never minted.
//
// # Slices
//
// Bytes returns a slice aliasing arena memory. It is valid only until the
// next call that may allocate or compact; copy out or call Bytes again.
//
// # Thread Safety
//
// Heap and Table are not thread-safe. Wrap a Heap in Synchronized to share it
// between goroutines.
package handle
