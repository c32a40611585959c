package orderbook

import (
	"testing"

	"github.com/vss84/hft-playpen/internal/types"
)

func mkOrder(id uint64, side types.Side, price types.Price, qty uint32) *types.Order {
	return &types.Order{ID: id, Side: side, Price: price, Quantity: qty, Status: types.StatusActive}
}

func TestAddOrderAndBestPrice(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Buy, 100, 10))
	b.AddOrder(mkOrder(2, types.Buy, 101, 5))

	bid, ok := b.BestBid()
	if !ok || bid != 101 {
		t.Fatalf("expected best bid 101, got %v (ok=%v)", bid, ok)
	}
}

func TestRemoveOrderDeletesEmptyLevel(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Sell, 100, 10))
	if !b.HasAsks() {
		t.Fatal("expected asks present")
	}
	b.RemoveOrder(1)
	if b.HasAsks() {
		t.Fatal("level should be deleted once its last order leaves")
	}
	if got := b.GetOrder(1); got != nil {
		t.Fatal("index entry should be gone after removal")
	}
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	b := New()
	b.RemoveOrder(999) // must not panic
}

func TestCancelIdempotence(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Buy, 100, 10))
	b.RemoveOrder(1)
	b.RemoveOrder(1) // second cancel is a no-op, same observable state
	if b.HasBids() {
		t.Fatal("book should remain empty")
	}
}

func TestFIFOWithinLevel(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(100, types.Sell, 50, 7))
	b.AddOrder(mkOrder(101, types.Sell, 50, 3))

	head := b.BestOrder(types.Sell)
	if head == nil || head.ID != 100 {
		t.Fatalf("expected order 100 at the head (earliest arrival), got %+v", head)
	}
}

func TestStableHandleAcrossUnrelatedChurn(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Buy, 100, 10))
	for i := uint64(2); i < 50; i++ {
		b.AddOrder(mkOrder(i, types.Buy, types.Price(100+i), 1))
		b.RemoveOrder(i)
	}
	o := b.GetOrder(1)
	if o == nil || o.ID != 1 {
		t.Fatal("order 1's handle must remain valid under unrelated churn")
	}
}

func TestSnapshotTopOrdering(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Buy, 100, 10))
	b.AddOrder(mkOrder(2, types.Buy, 102, 5))
	b.AddOrder(mkOrder(3, types.Buy, 101, 1))

	snap := b.SnapshotTop(5)
	if len(snap.Bids) != 3 {
		t.Fatalf("expected 3 bid levels, got %d", len(snap.Bids))
	}
	if snap.Bids[0].Price != 102 || snap.Bids[1].Price != 101 || snap.Bids[2].Price != 100 {
		t.Fatalf("expected descending bid levels, got %+v", snap.Bids)
	}
}

func TestSnapshotTopDoesNotDuplicateRecreatedLevel(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Sell, 100, 10))
	b.RemoveOrder(1) // level at 100 is deleted but its stale price stays in the heap
	b.AddOrder(mkOrder(2, types.Sell, 100, 7)) // recreates a level at the same price

	snap := b.SnapshotTop(5)
	if len(snap.Asks) != 1 {
		t.Fatalf("expected exactly 1 ask level after recreation at the same price, got %d: %+v", len(snap.Asks), snap.Asks)
	}
	if snap.Asks[0].Price != 100 || snap.Asks[0].Qty != 7 {
		t.Fatalf("expected one level {100, 7}, got %+v", snap.Asks[0])
	}
}

func TestAvailableLiquiditySumsAcrossLevelsUntilLimitOrNeedMet(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Sell, 100, 5))
	b.AddOrder(mkOrder(2, types.Sell, 101, 5))
	b.AddOrder(mkOrder(3, types.Sell, 102, 5))

	buy := types.Order{Side: types.Buy, Price: 101, Quantity: 10}
	if got := b.AvailableLiquidity(buy, false, 10); got != 10 {
		t.Fatalf("expected liquidity to stop accumulating at need=10, got %d", got)
	}

	buyThroughTop := types.Order{Side: types.Buy, Price: 100, Quantity: 10}
	if got := b.AvailableLiquidity(buyThroughTop, false, 10); got != 5 {
		t.Fatalf("a limit of 100 must not cross the 101/102 levels, expected 5, got %d", got)
	}

	market := types.Order{Side: types.Buy, Quantity: 20}
	if got := b.AvailableLiquidity(market, true, 100); got != 15 {
		t.Fatalf("a market order must sum every level regardless of price, expected 15, got %d", got)
	}
}

func TestNoCrossedBookWithBidBelowAsk(t *testing.T) {
	b := New()
	b.AddOrder(mkOrder(1, types.Buy, 99, 10))
	b.AddOrder(mkOrder(2, types.Sell, 100, 10))

	bid, _ := b.BestBid()
	ask, _ := b.BestAsk()
	if !(bid < ask) {
		t.Fatalf("book invariant violated: best_bid %d >= best_ask %d", bid, ask)
	}
}
