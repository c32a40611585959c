// Package orderbook implements the price-level indexed limit order book
// described in spec §3/§4.2: O(log L) insert by price, O(1) lookup by
// order id, O(1) best-bid/ask and FIFO-head access per level.
package orderbook

import (
	"github.com/vss84/hft-playpen/internal/types"
)

type Side = types.Side

const (
	Buy  = types.Buy
	Sell = types.Sell
)

// LevelInfo is a read-only view of one price level, used by SnapshotTop.
// Price marshals to JSON in decimal form via types.Price.MarshalJSON, since
// LevelInfo is the order book's snapshot/API boundary (the marketdata
// WebSocket feed marshals it directly) and ticks are an internal
// representation a consumer of that API shouldn't need to know about.
type LevelInfo struct {
	Price types.Price
	Qty   uint64
	Count int
}

// Snapshot is a read-only, point-in-time projection of the top N levels
// per side (§4.2 snapshot_top).
type Snapshot struct {
	Bids []LevelInfo
	Asks []LevelInfo
	Seq  uint64
}

// OrderBook maintains the two price-ordered sides and the order index
// described in §3. It is not safe for concurrent use: per §4.4/§5, the
// book and engine state are owned exclusively by the matching engine's
// goroutine.
type OrderBook struct {
	bidLevels map[types.Price]*PriceLevel
	askLevels map[types.Price]*PriceLevel
	bidHeap   *priceHeap
	askHeap   *priceHeap

	index map[uint64]handleRef
	arena *handleArena

	seq uint64
}

// New creates an empty order book for one symbol.
func New() *OrderBook {
	return &OrderBook{
		bidLevels: make(map[types.Price]*PriceLevel),
		askLevels: make(map[types.Price]*PriceLevel),
		bidHeap:   newPriceHeap(true),
		askHeap:   newPriceHeap(false),
		index:     make(map[uint64]handleRef),
		arena:     newHandleArena(),
	}
}

func (b *OrderBook) levelsFor(side types.Side) map[types.Price]*PriceLevel {
	if side == types.Buy {
		return b.bidLevels
	}
	return b.askLevels
}

func (b *OrderBook) heapFor(side types.Side) *priceHeap {
	if side == types.Buy {
		return b.bidHeap
	}
	return b.askHeap
}

// AddOrder inserts order at the tail of its (side, price) level, creating
// the level if absent. Precondition: order.ID is not already resting and
// order.Remaining() > 0; violating either is a caller bug, so AddOrder
// does not itself return an error (§4.2 "operations are total").
func (b *OrderBook) AddOrder(order *types.Order) {
	levels := b.levelsFor(order.Side)
	level, ok := levels[order.Price]
	if !ok {
		level = newPriceLevel(order.Side, order.Price)
		levels[order.Price] = level
		b.heapFor(order.Side).push(order.Price)
	}

	e := level.pushTail(order)
	ref := b.arena.alloc(orderHandle{price: order.Price, side: order.Side, elem: e})
	b.index[order.ID] = ref
	b.seq++
}

// RemoveOrder erases the resting order with the given id. Unknown ids are
// silently ignored (§4.2, §7 "silent no-op"), keeping the engine's cancel
// path branch-free.
func (b *OrderBook) RemoveOrder(id uint64) {
	ref, ok := b.index[id]
	if !ok {
		return
	}
	h, ok := b.arena.get(ref)
	if !ok {
		delete(b.index, id)
		return
	}

	level := h.elem.level
	level.erase(h.elem)

	if level.isEmpty() {
		levels := b.levelsFor(h.side)
		delete(levels, h.price)
		// The stale price is left in the heap; BestBid/BestAsk/BestOrder
		// filter it out lazily the next time it reaches the top (see
		// priceHeap's doc comment).
	}

	b.arena.free(ref)
	delete(b.index, id)
	b.seq++
}

// GetOrder returns the resting order for the given id for in-place
// mutation of FilledQty/Status by the engine, or nil if unknown.
func (b *OrderBook) GetOrder(id uint64) *types.Order {
	ref, ok := b.index[id]
	if !ok {
		return nil
	}
	h, ok := b.arena.get(ref)
	if !ok {
		return nil
	}
	return h.elem.order
}

// bestPrice returns and lazily cleans the heap for side until its top
// refers to a level that's still present.
func (b *OrderBook) bestPrice(side types.Side) (types.Price, bool) {
	levels := b.levelsFor(side)
	h := b.heapFor(side)
	for {
		p, ok := h.peek()
		if !ok {
			return 0, false
		}
		if _, live := levels[p]; live {
			return p, true
		}
		h.pop()
	}
}

func (b *OrderBook) BestBid() (types.Price, bool) { return b.bestPrice(types.Buy) }
func (b *OrderBook) BestAsk() (types.Price, bool) { return b.bestPrice(types.Sell) }

func (b *OrderBook) HasBids() bool { _, ok := b.bestPrice(types.Buy); return ok }
func (b *OrderBook) HasAsks() bool { _, ok := b.bestPrice(types.Sell); return ok }

// BestOrder returns the head (oldest) order of the best level on the
// given side, or nil if that side is empty.
func (b *OrderBook) BestOrder(side types.Side) *types.Order {
	p, ok := b.bestPrice(side)
	if !ok {
		return nil
	}
	return b.levelsFor(side)[p].front()
}

// BestLevel exposes the PriceLevel itself so the engine can update the
// cached level quantity in place after a fill, without a second map lookup.
func (b *OrderBook) BestLevel(side types.Side) *PriceLevel {
	p, ok := b.bestPrice(side)
	if !ok {
		return nil
	}
	return b.levelsFor(side)[p]
}

// AvailableLiquidity sums resting quantity on the side opposite incoming,
// walking best-price-first directly against the heap and level maps until
// the running sum reaches need or the ladder stops crossing incoming's
// limit (for a Market order, every live level counts). It exists
// specifically for the FOK pre-check (§4.3 step 2): that check runs on
// every FOK order, so unlike SnapshotTop its scratch allocation scales
// with the book's own live-level count instead of an arbitrary walk depth.
func (b *OrderBook) AvailableLiquidity(incoming types.Order, isMarket bool, need uint64) uint64 {
	opposite := types.Sell
	if incoming.Side == types.Sell {
		opposite = types.Buy
	}

	levels := b.levelsFor(opposite)
	h := b.heapFor(opposite)

	// Walk a scratch copy of the heap's price slice, same as topLevels, so
	// the live heap is never mutated. Sized to the heap's own length -- the
	// book's actual historical level count -- not an arbitrary depth bound.
	prices := append([]types.Price(nil), h.prices...)
	scratch := &priceHeap{prices: prices, descending: h.descending}

	// A recreated level leaves its price in the heap twice; count it once.
	seen := make(map[types.Price]struct{})
	var sum uint64
	for sum < need && scratch.Len() > 0 {
		p, _ := scratch.peek()
		scratch.pop()
		if _, dup := seen[p]; dup {
			continue
		}

		level, live := levels[p]
		if !live {
			continue
		}
		seen[p] = struct{}{}

		if !isMarket {
			if incoming.Side == types.Buy && incoming.Price < p {
				break
			}
			if incoming.Side == types.Sell && incoming.Price > p {
				break
			}
		}

		sum += level.Qty()
	}

	return sum
}

// SnapshotTop returns a read-only projection of the top depth levels per
// side, walking the heap best-first without mutating it (a value copy
// taken under the engine's own execution, per §5's snapshot policy).
func (b *OrderBook) SnapshotTop(depth int) Snapshot {
	snap := Snapshot{Seq: b.seq}
	snap.Bids = b.topLevels(types.Buy, depth)
	snap.Asks = b.topLevels(types.Sell, depth)
	return snap
}

func (b *OrderBook) topLevels(side types.Side, depth int) []LevelInfo {
	levels := b.levelsFor(side)
	h := b.heapFor(side)

	// Walk a scratch copy of the heap's price slice so SnapshotTop never
	// mutates the live heap even as it skips stale entries.
	prices := append([]types.Price(nil), h.prices...)
	scratch := &priceHeap{prices: prices, descending: h.descending}

	// A price can appear more than once in the heap: AddOrder pushes it
	// again if a level was deleted and later recreated at the same price,
	// since deletion only drops the map entry and leaves the old heap entry
	// to be skipped lazily. Track prices already emitted so a live level
	// reached twice is only reported once.
	seen := make(map[types.Price]struct{}, depth)
	out := make([]LevelInfo, 0, depth)
	for len(out) < depth && scratch.Len() > 0 {
		p, _ := scratch.peek()
		scratch.pop()
		if _, dup := seen[p]; dup {
			continue
		}
		level, live := levels[p]
		if !live {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, LevelInfo{Price: p, Qty: level.Qty(), Count: level.Count()})
	}
	return out
}
