package logsink

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/vss84/hft-playpen/internal/types"
)

// TradeSubject is the NATS subject trade events fan out on, grounded on
// backend/cmd/nats-dex/main.go's "dex.orders"/"dex.announce" naming.
const TradeSubject = "dex.trades"

// NATSPublisher mirrors each logged trade onto a NATS subject, for
// external consumers that want a live feed rather than tailing
// trades.log. It is an optional side channel: the pipeline's hot path
// never blocks on or depends on it, matching the original's
// out-of-process "external collaborator" framing for anything beyond the
// log sink itself.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher connects to url (nats.DefaultURL if empty).
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("logsink: connecting to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

// Publish fans a trade event out to TradeSubject as JSON. Errors are
// returned rather than panicking; a down NATS server must never affect
// the trade log itself.
func (p *NATSPublisher) Publish(trade types.TradeEvent) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("logsink: marshaling trade event: %w", err)
	}
	return p.nc.Publish(TradeSubject, data)
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	p.nc.Close()
}
