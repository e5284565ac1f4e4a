package world

import "github.com/OCAP2/demo/pkg/core"

// Xlate translates info ids recorded in a snapshot to the ids of the
// currently loaded content. It is built while the snapshot is read and
// stays alive for the whole playback, since creation events carry
// recorded info ids.
type Xlate struct {
	ObjectInfo []uint16
}

// NewXlate returns a table of n identity entries.
func NewXlate(n int) *Xlate {
	x := &Xlate{ObjectInfo: make([]uint16, n)}
	for i := range x.ObjectInfo {
		x.ObjectInfo[i] = uint16(i)
	}
	return x
}

// Translate maps a recorded info id for an object of type t. Cameras and
// ids outside the table pass through unchanged.
func (x *Xlate) Translate(t core.ObjectType, id uint16) uint16 {
	if x == nil || !t.IsGeneric() || int(id) >= len(x.ObjectInfo) {
		return id
	}
	return x.ObjectInfo[id]
}
