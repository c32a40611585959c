// Package types holds the wire-independent data model shared by the order
// book, matching engine, generator and log sink: orders, requests and trade
// events.
package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Side is the side of an order or resting level.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType distinguishes resting limit orders from transient market orders.
type OrderType uint8

const (
	Limit OrderType = iota
	Market
)

// TimeInForce is the lifetime policy of an order.
type TimeInForce uint8

const (
	GTC TimeInForce = iota
	IOC
	FOK
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	StatusNew OrderStatus = iota
	StatusActive
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusActive:
		return "ACTIVE"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Price is a tick-quantized price. The wire format carries price_ticks as a
// u32; internally we keep the full tick count as an int64 so arithmetic
// never overflows the accumulation of many fills, and convert to ticks on
// encode.
type Price int64

// TickSize is the default minimum price increment (§6.1).
const TickSize = 0.01

// ToDecimal converts a tick-quantized price to its decimal representation
// for API/snapshot boundaries, grounded on the teacher's use of
// shopspring/decimal for order book snapshot prices.
func (p Price) ToDecimal() decimal.Decimal {
	return decimal.New(int64(p), 0).Mul(decimal.NewFromFloat(TickSize))
}

// MarshalJSON renders Price in decimal form (e.g. "100.5") rather than the
// raw tick count, since JSON is only ever used at this repo's external
// boundaries (the marketdata WebSocket feed, the NATS trade fan-out) and
// ticks are an internal wire-encoding detail those consumers shouldn't need
// to know about.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToDecimal())
}

// PriceFromTicks constructs a Price from a raw wire tick count.
func PriceFromTicks(ticks uint32) Price {
	return Price(ticks)
}

// Ticks returns the raw tick count for wire encoding.
func (p Price) Ticks() uint32 {
	return uint32(p)
}

// Order is an immutable-identity record: order_id, symbol and side never
// change after creation; filled_qty is monotonically non-decreasing.
type Order struct {
	ID          uint64
	SymbolID    uint32
	Side        Side
	Type        OrderType
	TIF         TimeInForce
	Price       Price
	Quantity    uint32
	FilledQty   uint32
	Status      OrderStatus
	TimestampNs uint64
	SequenceID  uint64
}

// Remaining returns quantity - filled_qty; invariant remaining >= 0 is
// maintained by the matching engine, which never fills beyond Quantity.
func (o *Order) Remaining() uint32 {
	if o.FilledQty >= o.Quantity {
		return 0
	}
	return o.Quantity - o.FilledQty
}

func (o *Order) IsActive() bool {
	return o.Status == StatusActive
}

func (o *Order) IsComplete() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled || o.Status == StatusRejected
}

// RequestKind identifies which variant of the OrderRequest sum type is
// populated.
type RequestKind uint8

const (
	RequestNewOrder RequestKind = iota
	RequestCancelOrder
	RequestModifyOrder
)

// OrderRequest is the closed sum type the pipeline moves from parser to
// engine. Modify is reserved: the wire parser rejects it (§6.2) and the
// engine never receives RequestModifyOrder in practice, but the case is
// kept so dispatch stays exhaustive rather than relying on a variant the
// type system can't enforce.
type OrderRequest struct {
	Kind       RequestKind
	Order      Order
	CancelID   uint64
	SymbolID   uint32
	ModifyID   uint64
	NewPrice   Price
	NewQty     uint32
	TimestampNs uint64
}

// TradeEvent is the immutable record of a single match.
type TradeEvent struct {
	MakerOrderID uint64
	TakerOrderID uint64
	Price        Price
	Quantity     uint32
	TimestampNs  uint64
}
