package orderbook

import "github.com/vss84/hft-playpen/internal/types"

// handleArena is a pooled, generation-tagged store of order index entries.
//
// The original C++ source (original_source/slab_alloc/slab_alloc.h) sketches
// a slab allocator for exactly this kind of problem -- reusable fixed-size
// records with a free list -- but it's Windows-VirtualAlloc-specific,
// explicitly unfinished ("not being used throughout the rest of the
// pipeline"), and has no caller. Rather than port dead code, we adapt its
// core idea -- pooled storage with free-list reuse, tagged so a stale
// reference can be detected instead of silently aliasing a reused slot --
// to the one place the design notes (§9) call for it: the order book's
// order-id index, where a handle must "remain stable under unrelated
// insertions/removals of unrelated orders".
type handleArena struct {
	slots      []orderHandle
	generation []uint32
	freeList   []uint32
}

// orderHandle is what the order-id index stores: enough to erase an order
// from its price level in O(1) without re-deriving its position.
type orderHandle struct {
	price types.Price
	side  types.Side
	elem  *element
	inUse bool
}

func newHandleArena() *handleArena {
	return &handleArena{}
}

// handleRef is a stable, generation-checked reference to a slot.
type handleRef struct {
	slot uint32
	gen  uint32
}

func (a *handleArena) alloc(h orderHandle) handleRef {
	h.inUse = true
	if n := len(a.freeList); n > 0 {
		slot := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.slots[slot] = h
		return handleRef{slot: slot, gen: a.generation[slot]}
	}

	slot := uint32(len(a.slots))
	a.slots = append(a.slots, h)
	a.generation = append(a.generation, 0)
	return handleRef{slot: slot, gen: 0}
}

func (a *handleArena) get(ref handleRef) (*orderHandle, bool) {
	if int(ref.slot) >= len(a.slots) {
		return nil, false
	}
	if a.generation[ref.slot] != ref.gen || !a.slots[ref.slot].inUse {
		return nil, false
	}
	return &a.slots[ref.slot], true
}

func (a *handleArena) free(ref handleRef) {
	if int(ref.slot) >= len(a.slots) {
		return
	}
	if a.generation[ref.slot] != ref.gen || !a.slots[ref.slot].inUse {
		return
	}
	a.slots[ref.slot] = orderHandle{}
	a.generation[ref.slot]++
	a.freeList = append(a.freeList, ref.slot)
}
