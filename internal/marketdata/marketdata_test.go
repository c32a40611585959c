package marketdata

import (
	"testing"

	"github.com/luxfi/log"

	"github.com/vss84/hft-playpen/internal/orderbook"
)

func TestPublishWithNoClientsDoesNotPanic(t *testing.T) {
	b := New("BTCUSD", log.NewLogger("marketdata-test"))
	b.Publish(orderbook.Snapshot{
		Bids: []orderbook.LevelInfo{{Price: 100, Qty: 5, Count: 1}},
		Asks: []orderbook.LevelInfo{{Price: 101, Qty: 3, Count: 1}},
		Seq:  1,
	})
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", b.ClientCount())
	}
}

func TestNewBroadcasterStartsWithNoClients(t *testing.T) {
	b := New("ETHUSD", log.NewLogger("marketdata-test"))
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients for a fresh broadcaster, got %d", b.ClientCount())
	}
}
