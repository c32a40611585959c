package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"

	"github.com/vss84/hft-playpen/internal/types"
)

func newEngine() *Engine {
	return New(log.NewLogger("matching-test"))
}

func newOrderReq(id uint64, side types.Side, typ types.OrderType, tif types.TimeInForce, price types.Price, qty uint32) types.OrderRequest {
	return types.OrderRequest{
		Kind: types.RequestNewOrder,
		Order: types.Order{
			ID:       id,
			Side:     side,
			Type:     typ,
			TIF:      tif,
			Price:    price,
			Quantity: qty,
		},
	}
}

// TestFullMatch: a resting order is fully consumed by an equal-size
// incoming order at the resting price.
func TestFullMatch(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 10))
	e.Process(newOrderReq(2, types.Buy, types.Limit, types.GTC, 100, 10))

	trades := e.DrainTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(1), trades[0].MakerOrderID)
	assert.Equal(t, uint64(2), trades[0].TakerOrderID)
	assert.EqualValues(t, 10, trades[0].Quantity)
	assert.EqualValues(t, 100, trades[0].Price)

	assert.False(t, e.Book().HasAsks())
	assert.False(t, e.Book().HasBids())
}

// TestPartialThenFill: an incoming order larger than the resting maker
// leaves a residual on the book, which a second incoming order fills.
func TestPartialThenFill(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 5))
	e.Process(newOrderReq(2, types.Buy, types.Limit, types.GTC, 100, 8))

	trades := e.DrainTrades()
	require.Len(t, trades, 1)
	assert.EqualValues(t, 5, trades[0].Quantity)

	resting := e.Book().GetOrder(2)
	require.NotNil(t, resting)
	assert.EqualValues(t, 3, resting.Remaining())
	assert.Equal(t, types.StatusPartiallyFilled, resting.Status)

	e.Process(newOrderReq(3, types.Sell, types.Limit, types.GTC, 100, 3))
	trades = e.DrainTrades()
	require.Len(t, trades, 1)
	assert.EqualValues(t, 3, trades[0].Quantity)
	assert.Nil(t, e.Book().GetOrder(2))
}

// TestMarketSweepAcrossLevels: an incoming market order walks multiple
// price levels until fully filled.
func TestMarketSweepAcrossLevels(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 5))
	e.Process(newOrderReq(2, types.Sell, types.Limit, types.GTC, 101, 5))
	e.Process(newOrderReq(3, types.Sell, types.Limit, types.GTC, 102, 5))

	e.Process(newOrderReq(4, types.Buy, types.Market, types.IOC, 0, 12))
	trades := e.DrainTrades()
	require.Len(t, trades, 3)
	assert.EqualValues(t, 100, trades[0].Price)
	assert.EqualValues(t, 101, trades[1].Price)
	assert.EqualValues(t, 102, trades[2].Price)
	assert.EqualValues(t, 5, trades[0].Quantity)
	assert.EqualValues(t, 5, trades[1].Quantity)
	assert.EqualValues(t, 2, trades[2].Quantity)

	ask, ok := e.Book().BestAsk()
	require.True(t, ok)
	assert.EqualValues(t, 102, ask)
}

// TestFOKRejectThenMarketSweep: a FOK order that the full ladder cannot
// satisfy is rejected without touching the book; a subsequent market
// order can still sweep the same liquidity.
func TestFOKRejectThenMarketSweep(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 5))
	e.Process(newOrderReq(2, types.Sell, types.Limit, types.GTC, 101, 3))

	e.Process(newOrderReq(3, types.Buy, types.Limit, types.FOK, 101, 10))
	trades := e.DrainTrades()
	assert.Empty(t, trades, "FOK must reject, not partially fill")
	assert.Nil(t, e.Book().GetOrder(3))

	ask, ok := e.Book().BestAsk()
	require.True(t, ok)
	assert.EqualValues(t, 100, ask, "rejected FOK must not mutate the book")

	e.Process(newOrderReq(4, types.Buy, types.Market, types.IOC, 0, 8))
	trades = e.DrainTrades()
	require.Len(t, trades, 2)
}

// TestFOKAcceptsWhenLadderCoversIt exercises the corrected multi-level
// liquidity check: the best level alone is insufficient, but the full
// ladder covers the order, so it must fill rather than reject.
func TestFOKAcceptsWhenLadderCoversIt(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 5))
	e.Process(newOrderReq(2, types.Sell, types.Limit, types.GTC, 101, 5))

	e.Process(newOrderReq(3, types.Buy, types.Limit, types.FOK, 101, 10))
	trades := e.DrainTrades()
	require.Len(t, trades, 2, "FOK must fill when the full ladder covers the quantity")
}

// TestCancelBeforeMatch: cancelling a resting order removes it before
// it can be matched.
func TestCancelBeforeMatch(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 10))
	e.Process(types.OrderRequest{Kind: types.RequestCancelOrder, CancelID: 1})

	e.Process(newOrderReq(2, types.Buy, types.Limit, types.GTC, 100, 10))
	trades := e.DrainTrades()
	assert.Empty(t, trades)
	assert.True(t, e.Book().HasBids())
}

// TestFIFOWithinLevelMatching confirms price-time priority: the earliest
// resting order at a price level is matched first.
func TestFIFOWithinLevelMatching(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 4))
	e.Process(newOrderReq(2, types.Sell, types.Limit, types.GTC, 100, 4))

	e.Process(newOrderReq(3, types.Buy, types.Limit, types.GTC, 100, 4))
	trades := e.DrainTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(1), trades[0].MakerOrderID, "earlier resting order must match first")

	remaining := e.Book().GetOrder(2)
	require.NotNil(t, remaining)
	assert.EqualValues(t, 4, remaining.Remaining())
}

func TestIOCResidualIsNotResting(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 3))
	e.Process(newOrderReq(2, types.Buy, types.Limit, types.IOC, 100, 10))

	trades := e.DrainTrades()
	require.Len(t, trades, 1)
	assert.EqualValues(t, 3, trades[0].Quantity)
	assert.Nil(t, e.Book().GetOrder(2), "unfilled IOC residual must not rest on the book")
}

func TestCancelUnknownIDIsNoop(t *testing.T) {
	e := newEngine()
	e.Process(types.OrderRequest{Kind: types.RequestCancelOrder, CancelID: 999})
}

// TestFOKPrecheckSeesFillsNotOriginalLevelQty reproduces the scenario where
// a level's cached quantity must shrink as its resting orders get filled: a
// maker partially filled down to a smaller remainder must not leave stale
// quantity behind for a later FOK pre-check to over-count, which would let
// the FOK trade against the book and then still get rejected on the
// residual-status switch (§4.3 step 2 / §7: FOK must never mutate the book
// unless it fully fills).
func TestFOKPrecheckSeesFillsNotOriginalLevelQty(t *testing.T) {
	e := newEngine()
	e.Process(newOrderReq(1, types.Sell, types.Limit, types.GTC, 100, 10))
	e.Process(newOrderReq(2, types.Buy, types.Limit, types.GTC, 100, 4))

	fill := e.DrainTrades()
	require.Len(t, fill, 1)
	assert.EqualValues(t, 4, fill[0].Quantity)

	maker := e.Book().GetOrder(1)
	require.NotNil(t, maker)
	assert.EqualValues(t, 6, maker.Remaining(), "id1 has 6 lots left after the 4-lot fill")

	snap := e.Book().SnapshotTop(10)
	require.Len(t, snap.Asks, 1)
	assert.EqualValues(t, 6, snap.Asks[0].Qty, "level qty must reflect the fill, not the original 10")

	e.Process(newOrderReq(3, types.Buy, types.Limit, types.FOK, 100, 8))
	trades := e.DrainTrades()
	assert.Empty(t, trades, "only 6 lots remain at 100; an 8-lot FOK must reject")
	assert.Nil(t, e.Book().GetOrder(3))

	stillResting := e.Book().GetOrder(1)
	require.NotNil(t, stillResting)
	assert.EqualValues(t, 6, stillResting.Remaining(), "the rejected FOK must not have mutated id1")
}
