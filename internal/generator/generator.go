// Package generator produces synthetic order requests for the pipeline's
// ingress stage, per spec §6.5: a mix of new/cancel actions, normally
// distributed prices around a drifting mid, Poisson-ish quantities and
// exponential inter-arrival delays.
//
// Grounded on _examples/original_source/order_generator/include/order_generator/order_generator.h,
// translated from C++'s <random> distribution objects to math/rand samples,
// matching the style the teacher itself uses for synthetic load in
// backend/cmd/turbo-trader/main.go (rand.Intn / rand.Float64, no
// distribution library).
package generator

import (
	"math"
	"math/rand"

	"github.com/vss84/hft-playpen/internal/clock"
	"github.com/vss84/hft-playpen/internal/types"
)

// action is the discrete choice of what GenerateNext produces.
type action int

const (
	actionNewOrder action = iota
	actionCancelOrder
	actionModifyOrder
)

// Generator is a single-producer synthetic order source for one symbol.
// It is not safe for concurrent use; the pipeline's ingress stage owns it
// exclusively (§5).
type Generator struct {
	rng   *rand.Rand
	clock *clock.Monotonic

	symbolID uint32
	tickSize float64
	midPrice float64

	activeOrders map[uint64]struct{}
	orderList    []uint64

	nextOrderID  uint64
	totalOrders  uint64
	totalCancels uint64
}

// Config parameterizes a Generator. Zero values fall back to the same
// defaults the original generator used.
type Config struct {
	SymbolID        uint32
	InitialMidPrice float64
	TickSize        float64
	Seed            int64
}

// DefaultConfig returns the generator defaults (§6.5).
func DefaultConfig() Config {
	return Config{
		SymbolID:        1,
		InitialMidPrice: 100.0,
		TickSize:        types.TickSize,
	}
}

// New creates a Generator from cfg, using clk for order timestamps.
func New(cfg Config, clk *clock.Monotonic) *Generator {
	if cfg.InitialMidPrice == 0 {
		cfg.InitialMidPrice = 100.0
	}
	if cfg.TickSize == 0 {
		cfg.TickSize = types.TickSize
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}

	return &Generator{
		rng:          rand.New(rand.NewSource(seed)),
		clock:        clk,
		symbolID:     cfg.SymbolID,
		tickSize:     cfg.TickSize,
		midPrice:     cfg.InitialMidPrice,
		activeOrders: make(map[uint64]struct{}),
		nextOrderID:  1000,
	}
}

// GenerateNext produces one OrderRequest according to the action mix
// (70% new, 25% cancel, 5% modify -- modify falls back to cancel since
// the wire parser never accepts it downstream) and re-centers the price
// distribution around a drifting mid every 100 orders generated.
func (g *Generator) GenerateNext() types.OrderRequest {
	if g.totalOrders%100 == 0 {
		g.midPrice += g.rng.NormFloat64() * 0.1
	}

	switch g.chooseAction() {
	case actionNewOrder:
		return g.generateNewOrder()
	case actionCancelOrder:
		return g.generateCancelOrder()
	case actionModifyOrder:
		return g.generateModifyOrder()
	default:
		return g.generateNewOrder()
	}
}

// GenerateBurst produces count requests in one call, for tests and
// throughput benchmarking.
func (g *Generator) GenerateBurst(count int) []types.OrderRequest {
	out := make([]types.OrderRequest, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.GenerateNext())
	}
	return out
}

// NextArrivalDelayNs samples an exponential inter-arrival delay, averaging
// 100 orders/sec, expressed in nanoseconds.
func (g *Generator) NextArrivalDelayNs() uint64 {
	const ordersPerSecond = 100.0
	seconds := g.rng.ExpFloat64() / ordersPerSecond
	return uint64(seconds * 1e9)
}

// chooseAction implements the 70/25/5 discrete action distribution.
func (g *Generator) chooseAction() action {
	r := g.rng.Intn(100)
	switch {
	case r < 70:
		return actionNewOrder
	case r < 95:
		return actionCancelOrder
	default:
		return actionModifyOrder
	}
}

func (g *Generator) generateNewOrder() types.OrderRequest {
	id := g.nextOrderID
	g.nextOrderID++

	rawPrice := g.midPrice + g.rng.NormFloat64()*0.5
	price := math.Round(rawPrice/g.tickSize) * g.tickSize
	if price < g.tickSize {
		price = g.tickSize
	}

	qty := g.samplePoissonQuantity(100)
	if qty < 1 {
		qty = 1
	}

	side := types.Buy
	if g.rng.Intn(2) == 1 {
		side = types.Sell
	}

	offsetTicks := float64(1 + g.rng.Intn(5))
	if side == types.Buy {
		price -= g.tickSize * offsetTicks
	} else {
		price += g.tickSize * offsetTicks
	}
	if price < g.tickSize {
		price = g.tickSize
	}

	tif := g.sampleTIF()
	ts := g.clock.NowNs()

	g.activeOrders[id] = struct{}{}
	g.orderList = append(g.orderList, id)
	g.totalOrders++

	return types.OrderRequest{
		Kind:        types.RequestNewOrder,
		SymbolID:    g.symbolID,
		TimestampNs: ts,
		Order: types.Order{
			ID:          id,
			SymbolID:    g.symbolID,
			Side:        side,
			Type:        types.Limit,
			TIF:         tif,
			Price:       types.Price(math.Round(price / g.tickSize)),
			Quantity:    qty,
			TimestampNs: ts,
			Status:      types.StatusNew,
		},
	}
}

func (g *Generator) generateCancelOrder() types.OrderRequest {
	if len(g.orderList) == 0 {
		return g.generateNewOrder()
	}

	idx := g.rng.Intn(len(g.orderList))
	id := g.orderList[idx]

	g.orderList[idx] = g.orderList[len(g.orderList)-1]
	g.orderList = g.orderList[:len(g.orderList)-1]
	delete(g.activeOrders, id)
	g.totalCancels++

	return types.OrderRequest{
		Kind:        types.RequestCancelOrder,
		SymbolID:    g.symbolID,
		CancelID:    id,
		TimestampNs: g.clock.NowNs(),
	}
}

// generateModifyOrder mirrors the original's ModifyOrder handler, which
// degrades to a cancel when an order exists to cancel and otherwise
// generates a fresh order; Modify itself never reaches the wire parser
// (§6.2 rejects it), so no OrderRequest ever carries RequestModifyOrder
// out of this package.
func (g *Generator) generateModifyOrder() types.OrderRequest {
	if len(g.activeOrders) > 0 {
		return g.generateCancelOrder()
	}
	return g.generateNewOrder()
}

func (g *Generator) sampleTIF() types.TimeInForce {
	r := g.rng.Intn(100)
	switch {
	case r < 80:
		return types.GTC
	case r < 95:
		return types.IOC
	default:
		return types.FOK
	}
}

// samplePoissonQuantity draws from a Poisson distribution via Knuth's
// algorithm, matching the original's std::poisson_distribution(100) for
// order quantity.
func (g *Generator) samplePoissonQuantity(lambda float64) uint32 {
	l := math.Exp(-lambda)
	k := uint32(0)
	p := 1.0
	for {
		k++
		p *= g.rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}
