package generator

import (
	"testing"

	"github.com/vss84/hft-playpen/internal/clock"
	"github.com/vss84/hft-playpen/internal/types"
)

func newTestGenerator(seed int64) *Generator {
	cfg := DefaultConfig()
	cfg.Seed = seed
	return New(cfg, clock.New())
}

func TestGenerateBurstProducesRequestedCount(t *testing.T) {
	g := newTestGenerator(42)
	reqs := g.GenerateBurst(500)
	if len(reqs) != 500 {
		t.Fatalf("expected 500 requests, got %d", len(reqs))
	}
}

func TestGenerateNextOnlyProducesKnownRequestKinds(t *testing.T) {
	g := newTestGenerator(7)
	for i := 0; i < 1000; i++ {
		req := g.GenerateNext()
		switch req.Kind {
		case types.RequestNewOrder, types.RequestCancelOrder:
		default:
			t.Fatalf("unexpected request kind %v at iteration %d", req.Kind, i)
		}
	}
}

func TestGeneratedNewOrdersHaveLimitTypeAndPositiveQuantity(t *testing.T) {
	g := newTestGenerator(123)
	for i := 0; i < 300; i++ {
		req := g.GenerateNext()
		if req.Kind != types.RequestNewOrder {
			continue
		}
		if req.Order.Type != types.Limit {
			t.Fatalf("expected Limit order type, got %v", req.Order.Type)
		}
		if req.Order.Quantity == 0 {
			t.Fatal("generated quantity must be at least 1")
		}
		if req.Order.Price <= 0 {
			t.Fatalf("generated price must be positive, got %v", req.Order.Price)
		}
	}
}

func TestCancelRequestsReferenceKnownOrderIDs(t *testing.T) {
	g := newTestGenerator(9)
	seen := make(map[uint64]bool)
	for i := 0; i < 2000; i++ {
		req := g.GenerateNext()
		switch req.Kind {
		case types.RequestNewOrder:
			seen[req.Order.ID] = true
		case types.RequestCancelOrder:
			if !seen[req.CancelID] {
				t.Fatalf("cancel referenced an order id never generated: %d", req.CancelID)
			}
		}
	}
}

func TestNextArrivalDelayIsNonNegative(t *testing.T) {
	g := newTestGenerator(3)
	zeros := 0
	for i := 0; i < 100; i++ {
		if d := g.NextArrivalDelayNs(); d == 0 {
			// an occasional zero delay is plausible for an exponential
			// distribution; only fail if every sample collapses to zero.
			zeros++
		}
	}
	if zeros == 100 {
		t.Fatal("every sampled arrival delay was zero")
	}
}

func TestSamplePoissonQuantityAveragesNearLambda(t *testing.T) {
	g := newTestGenerator(55)
	var sum uint64
	const n = 2000
	for i := 0; i < n; i++ {
		sum += uint64(g.samplePoissonQuantity(100))
	}
	mean := float64(sum) / float64(n)
	if mean < 80 || mean > 120 {
		t.Fatalf("expected mean quantity near 100, got %.2f", mean)
	}
}
