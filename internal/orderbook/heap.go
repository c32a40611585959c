package orderbook

import (
	"container/heap"

	"github.com/vss84/hft-playpen/internal/types"
)

// priceHeap orders price keys for O(log L) insert and O(1)-amortized best-
// price access, grounded on the teacher's OrderTree.priceHeap
// (backend/pkg/lx/orderbook.go), including its "leave stale entries and
// filter on pop" removal policy -- popping a price out of the heap on
// every level deletion is the expensive path the teacher's comment warns
// about, so a price that no longer has a live level is simply skipped the
// next time it reaches the top.
type priceHeap struct {
	prices     []types.Price
	descending bool // true for bids (best = highest price)
}

func (h priceHeap) Len() int { return len(h.prices) }

func (h priceHeap) Less(i, j int) bool {
	if h.descending {
		return h.prices[i] > h.prices[j]
	}
	return h.prices[i] < h.prices[j]
}

func (h priceHeap) Swap(i, j int) { h.prices[i], h.prices[j] = h.prices[j], h.prices[i] }

func (h *priceHeap) Push(x any) {
	h.prices = append(h.prices, x.(types.Price))
}

func (h *priceHeap) Pop() any {
	old := h.prices
	n := len(old)
	item := old[n-1]
	h.prices = old[:n-1]
	return item
}

func newPriceHeap(descending bool) *priceHeap {
	h := &priceHeap{descending: descending}
	heap.Init(h)
	return h
}

func (h *priceHeap) push(p types.Price) {
	heap.Push(h, p)
}

func (h *priceHeap) peek() (types.Price, bool) {
	if h.Len() == 0 {
		return 0, false
	}
	return h.prices[0], true
}

func (h *priceHeap) pop() {
	if h.Len() == 0 {
		return
	}
	heap.Pop(h)
}
