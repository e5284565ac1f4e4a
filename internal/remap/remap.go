// Package remap translates object ids recorded in a demo to the ids the
// objects were given when recreated during playback.
package remap

import (
	"errors"
	"fmt"

	"github.com/OCAP2/demo/pkg/core"
)

// Unbound is the value stored for an id with no live mapping.
const Unbound = core.NoObject

// ErrOutOfRange is returned when an id does not fit the table.
var ErrOutOfRange = errors.New("object id out of range")

// Table maps recorded ids to live ids. The zero value is unusable; use New.
type Table struct {
	entries []uint16
}

// New returns a table sized for size objects with every entry unbound.
func New(size int) *Table {
	t := &Table{entries: make([]uint16, size)}
	t.Reset()
	return t
}

// Len returns the table capacity.
func (t *Table) Len() int {
	return len(t.entries)
}

// Reset unbinds every entry.
func (t *Table) Reset() {
	for i := range t.entries {
		t.entries[i] = Unbound
	}
}

// ResetIdentity unbinds every entry and then maps [0, limit) onto itself.
func (t *Table) ResetIdentity(limit int) {
	t.Reset()
	limit = min(limit, len(t.entries))
	for i := 0; i < limit; i++ {
		t.entries[i] = uint16(i)
	}
}

// Bind maps old to new, replacing any previous mapping.
func (t *Table) Bind(old, new uint16) error {
	if int(old) >= len(t.entries) {
		return fmt.Errorf("bind %d: %w", old, ErrOutOfRange)
	}
	t.entries[old] = new
	return nil
}

// Unbind removes the mapping for old. Unknown ids are ignored.
func (t *Table) Unbind(old uint16) {
	if int(old) < len(t.entries) {
		t.entries[old] = Unbound
	}
}

// Resolve returns the live id for old. ok is false when old is out of
// range or unbound, in which case the returned id is Unbound.
func (t *Table) Resolve(old uint16) (uint16, bool) {
	if int(old) >= len(t.entries) {
		return Unbound, false
	}
	id := t.entries[old]
	return id, id != Unbound
}

// Bound returns the number of live mappings.
func (t *Table) Bound() int {
	n := 0
	for _, id := range t.entries {
		if id != Unbound {
			n++
		}
	}
	return n
}
