// Package matching implements the price-time priority matching state
// machine described in spec §4.3: it consumes OrderRequests one at a time,
// applies new-order and cancel semantics against an orderbook.OrderBook,
// and accumulates TradeEvents for the caller to drain.
//
// Grounded on original_source/matching_engine/matching_engine.h, with one
// deliberate correction: that source's FOK pre-check (AvailableQuantityFor)
// only inspects the single best opposite-side level before returning,
// which can accept a FOK order that the full ladder can't actually fill.
// Engine.availableLiquidity walks every level top-down instead (§4.3 "Open
// issue", §9).
package matching

import (
	"github.com/luxfi/log"

	"github.com/vss84/hft-playpen/internal/clock"
	"github.com/vss84/hft-playpen/internal/orderbook"
	"github.com/vss84/hft-playpen/internal/types"
)

// Engine owns one symbol's order book and processes requests strictly in
// sequence; it has no internal concurrency (§4.3).
type Engine struct {
	book   *orderbook.OrderBook
	clock  *clock.Monotonic
	logger log.Logger

	nextOrderID uint64
	globalSeq   uint64
	trades      []types.TradeEvent
}

// New creates a matching engine for one symbol.
func New(logger log.Logger) *Engine {
	return &Engine{
		book:        orderbook.New(),
		clock:       clock.New(),
		logger:      logger,
		nextOrderID: 1,
	}
}

// Book exposes the underlying order book for read-only snapshot access
// (e.g. market data publishing); the engine remains its sole mutator.
func (e *Engine) Book() *orderbook.OrderBook { return e.book }

// Process applies one OrderRequest, mutating the book and appending any
// produced trades to the internal buffer for the next DrainTrades call.
func (e *Engine) Process(req types.OrderRequest) {
	switch req.Kind {
	case types.RequestNewOrder:
		e.processNewOrder(req.Order)
	case types.RequestCancelOrder:
		e.processCancel(req.CancelID)
	case types.RequestModifyOrder:
		// Reserved: the wire parser rejects Modify frames before they
		// ever reach the engine (§6.2), so this case only exists to
		// keep dispatch exhaustive.
		e.logger.Warn("modify order reached the engine; dropping", "order_id", req.ModifyID)
	}
}

// DrainTrades returns all trades produced since the last call and resets
// the internal buffer.
func (e *Engine) DrainTrades() []types.TradeEvent {
	trades := e.trades
	e.trades = nil
	return trades
}

func (e *Engine) processNewOrder(order types.Order) {
	if order.ID == 0 {
		order.ID = e.nextOrderID
		e.nextOrderID++
	}
	e.globalSeq++
	order.SequenceID = e.globalSeq
	order.TimestampNs = e.clock.NowNs()
	order.Status = types.StatusActive

	isMarket := order.Type == types.Market

	if order.TIF == types.FOK {
		available := e.availableLiquidity(order, isMarket)
		if available < order.Remaining() {
			order.Status = types.StatusRejected
			e.logger.Debug("FOK rejected: insufficient liquidity",
				"order_id", order.ID, "requested", order.Remaining(), "available", available)
			return
		}
	}

	filledFully := e.tryMatch(&order, isMarket)

	switch {
	case filledFully:
		order.Status = types.StatusFilled
	case order.Remaining() == 0:
		order.Status = types.StatusFilled
	case order.Type == types.Limit && order.TIF == types.GTC:
		resting := order
		e.book.AddOrder(&resting)
		if resting.FilledQty > 0 {
			resting.Status = types.StatusPartiallyFilled
		} else {
			resting.Status = types.StatusActive
		}
	case order.TIF == types.FOK:
		// Defensive: the pre-check above should have rejected this
		// order before any book mutation occurred.
		order.Status = types.StatusRejected
	default: // IOC residual, or Market residual with no more liquidity
		if order.FilledQty > 0 {
			order.Status = types.StatusPartiallyFilled
		} else {
			order.Status = types.StatusCancelled
		}
	}
}

// tryMatch walks the opposite side best-price-first, filling the incoming
// order against resting makers until it's exhausted, crosses out of price,
// or the book runs dry. It returns true if the incoming order was fully
// filled.
func (e *Engine) tryMatch(incoming *types.Order, isMarket bool) bool {
	opposite := types.Sell
	if incoming.Side == types.Sell {
		opposite = types.Buy
	}

	if !e.hasSide(opposite) && isMarket {
		return false
	}

	for incoming.Remaining() > 0 {
		maker := e.book.BestOrder(opposite)
		if maker == nil {
			break
		}

		executionPrice, ok := e.bestPrice(opposite)
		if !ok {
			break
		}

		if !isMarket {
			if incoming.Side == types.Buy && incoming.Price < executionPrice {
				break
			}
			if incoming.Side == types.Sell && incoming.Price > executionPrice {
				break
			}
		}

		tradeQty := min32(incoming.Remaining(), maker.Remaining())
		if tradeQty == 0 {
			break
		}

		incoming.FilledQty += tradeQty
		maker.FilledQty += tradeQty

		// The maker is still the head of opposite's best level here, so the
		// level's cached quantity must shrink by tradeQty now -- otherwise
		// Qty() keeps counting quantity that just traded away, which is
		// exactly what let a FOK pre-check see phantom liquidity (§3
		// invariant 3, §4.3 step 2).
		if level := e.book.BestLevel(opposite); level != nil {
			level.RecomputeQty(tradeQty)
		}

		e.trades = append(e.trades, types.TradeEvent{
			MakerOrderID: maker.ID,
			TakerOrderID: incoming.ID,
			Price:        executionPrice,
			Quantity:     tradeQty,
			TimestampNs:  e.clock.NowNs(),
		})

		if maker.Remaining() == 0 {
			maker.Status = types.StatusFilled
			e.book.RemoveOrder(maker.ID)
		} else {
			maker.Status = types.StatusPartiallyFilled
		}
	}

	return incoming.Remaining() == 0
}

// availableLiquidity sums resting quantity across the opposite-side levels
// that the incoming order's limit (or, for Market, every level) could
// cross, walking the ladder top-down rather than stopping at the best
// level, until the sum covers the order's remaining quantity (so the
// result is capped near that amount, not the full crossable total) --
// the correction called out in the package doc and
// spec §4.3's "Open issue". It runs on every FOK order, so the walk itself
// (OrderBook.AvailableLiquidity) goes straight at the book's heap and level
// maps instead of building a SnapshotTop, which would allocate scratch
// space sized to an arbitrary depth bound on every call.
func (e *Engine) availableLiquidity(incoming types.Order, isMarket bool) uint32 {
	sum := e.book.AvailableLiquidity(incoming, isMarket, uint64(incoming.Remaining()))

	if sum > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(sum)
}

func (e *Engine) processCancel(orderID uint64) {
	order := e.book.GetOrder(orderID)
	if order == nil {
		return
	}
	order.Status = types.StatusCancelled
	e.book.RemoveOrder(orderID)
}

func (e *Engine) hasSide(side types.Side) bool {
	if side == types.Buy {
		return e.book.HasBids()
	}
	return e.book.HasAsks()
}

func (e *Engine) bestPrice(side types.Side) (types.Price, bool) {
	if side == types.Buy {
		return e.book.BestBid()
	}
	return e.book.BestAsk()
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
