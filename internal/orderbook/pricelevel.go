package orderbook

import "github.com/vss84/hft-playpen/internal/types"

// element is a node in a PriceLevel's FIFO chain. It is intrusive (the
// level is a plain doubly linked list of *element) so erase-by-position is
// O(1) given the node pointer the index stores -- no scan required.
type element struct {
	order      *types.Order
	prev, next *element
	level      *PriceLevel
}

// PriceLevel holds every resting order at a single (side, price), in
// strict arrival order: the head is the oldest order and trades first
// (§3 invariant 7, FIFO).
type PriceLevel struct {
	Price types.Price
	Side  types.Side

	head, tail *element
	count      int
	levelQty   uint64 // cached sum of Remaining() across Orders (invariant 3)
}

func newPriceLevel(side types.Side, price types.Price) *PriceLevel {
	return &PriceLevel{Side: side, Price: price}
}

// pushTail appends order to the end of the level's FIFO chain in O(1) and
// returns the node so the caller can store it in the order index for O(1)
// later removal.
func (l *PriceLevel) pushTail(order *types.Order) *element {
	e := &element{order: order, level: l}
	if l.tail == nil {
		l.head, l.tail = e, e
	} else {
		e.prev = l.tail
		l.tail.next = e
		l.tail = e
	}
	l.count++
	l.levelQty += uint64(order.Remaining())
	return e
}

// erase removes e from its level in O(1).
func (l *PriceLevel) erase(e *element) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
	l.count--
	if rem := uint64(e.order.Remaining()); rem <= l.levelQty {
		l.levelQty -= rem
	} else {
		l.levelQty = 0
	}
}

// front returns the oldest (head) order, or nil if the level is empty.
func (l *PriceLevel) front() *types.Order {
	if l.head == nil {
		return nil
	}
	return l.head.order
}

func (l *PriceLevel) isEmpty() bool {
	return l.count == 0
}

// Count is the number of resting orders at this level.
func (l *PriceLevel) Count() int {
	return l.count
}

// Qty is the cached total remaining quantity at this level.
func (l *PriceLevel) Qty() uint64 {
	return l.levelQty
}

// RecomputeQty decrements the cached quantity by the amount an order's
// remaining quantity just dropped by, without requiring a full rescan.
// The engine calls this after every fill against the level's head order,
// maker or not, so Qty() never overstates resting liquidity (§3 invariant 3)
// -- erase only needs to account for whatever remaining quantity a removed
// order still represents at removal time, since any fill already taken out
// of it was already subtracted here.
func (l *PriceLevel) RecomputeQty(delta uint32) {
	d := uint64(delta)
	if d <= l.levelQty {
		l.levelQty -= d
	} else {
		l.levelQty = 0
	}
}
