package handle

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
)

// ID names one live object.
type ID uint64

// InvalidID is never minted.
const InvalidID ID = 0

// Table maps identifiers to current object addresses in identifier order.
// It holds no ownership of the bytes it points at.
type Table struct {
	entries *treemap.Map // uint64 -> format.Addr
	last    ID
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: treemap.NewWith(utils.UInt64Comparator)}
}

// Mint returns a fresh identifier. Identifiers strictly increase for the
// lifetime of the table, including across periods where it is empty.
func (t *Table) Mint() ID {
	t.last++
	return t.last
}

// Last returns the most recently minted identifier, or InvalidID.
func (t *Table) Last() ID { return t.last }

// Insert records addr for id. An id that is already present, or InvalidID,
// is rejected and the table is left unchanged.
func (t *Table) Insert(id ID, addr format.Addr) error {
	if id == InvalidID {
		logger.Warn("handle table: insert of invalid id")
		return errors.Wrap(ErrUnknownIdentifier, "insert of invalid id")
	}
	if _, found := t.entries.Get(uint64(id)); found {
		logger.Warn("handle table: duplicate insert", "id", id, "addr", addr)
		return errors.Wrapf(ErrDuplicateIdentifier, "insert %d", id)
	}
	t.entries.Put(uint64(id), addr)
	return nil
}

// Erase removes id.
func (t *Table) Erase(id ID) error {
	if _, found := t.entries.Get(uint64(id)); !found {
		logger.Warn("handle table: erase of unknown id", "id", id)
		return errors.Wrapf(ErrUnknownIdentifier, "erase %d", id)
	}
	t.entries.Remove(uint64(id))
	return nil
}

// Get returns the current address of id.
func (t *Table) Get(id ID) (format.Addr, bool) {
	v, found := t.entries.Get(uint64(id))
	if !found {
		return format.NoAddr, false
	}
	return v.(format.Addr), true
}

// Contains reports whether id is live.
func (t *Table) Contains(id ID) bool {
	_, found := t.entries.Get(uint64(id))
	return found
}

// Replace points an existing id at addr. Only relocation should call it.
func (t *Table) Replace(id ID, addr format.Addr) error {
	if _, found := t.entries.Get(uint64(id)); !found {
		logger.Warn("handle table: replace of unknown id", "id", id, "addr", addr)
		return errors.Wrapf(ErrUnknownIdentifier, "replace %d", id)
	}
	t.entries.Put(uint64(id), addr)
	return nil
}

// Len returns the number of live identifiers.
func (t *Table) Len() int { return t.entries.Size() }

// All iterates entries in identifier order. The table must not be modified
// during iteration.
func (t *Table) All() iter.Seq2[ID, format.Addr] {
	return func(yield func(ID, format.Addr) bool) {
		it := t.entries.Iterator()
		for it.Next() {
			if !yield(ID(it.Key().(uint64)), it.Value().(format.Addr)) {
				return
			}
		}
	}
}

// Range implements arena.Directory.
func (t *Table) Range(fn func(id uint64, addr format.Addr) bool) {
	for id, addr := range t.All() {
		if !fn(uint64(id), addr) {
			return
		}
	}
}

// Relocate implements arena.Directory.
func (t *Table) Relocate(id uint64, addr format.Addr) error {
	return t.Replace(ID(id), addr)
}
