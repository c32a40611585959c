package generator

import (
	"fmt"

	zmq "github.com/pebbe/zmq4"

	"github.com/vss84/hft-playpen/internal/wire"
)

// ZMQSource is an alternate ingress adapter: instead of synthesizing its
// own order flow, it pulls already wire-encoded frames from a remote
// producer over a ZeroMQ PULL socket. It satisfies the same "produces raw
// frames for the parser" contract the in-process Generator's agent stage
// fulfills (§4.4's AgentThread analog), letting the pipeline's parser
// stage stay oblivious to which ingress adapter feeds it.
//
// Grounded on backend/cmd/zmq-trader/main.go's PUSH side; this is its
// PULL-side counterpart.
type ZMQSource struct {
	ctx    *zmq.Context
	socket *zmq.Socket
}

// NewZMQSource binds a PULL socket at addr (e.g. "tcp://*:5555") and
// receives NewOrder/Cancel frames encoded per §6.1.
func NewZMQSource(addr string) (*ZMQSource, error) {
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("generator: creating ZMQ context: %w", err)
	}

	socket, err := ctx.NewSocket(zmq.PULL)
	if err != nil {
		return nil, fmt.Errorf("generator: creating PULL socket: %w", err)
	}

	if err := socket.Bind(addr); err != nil {
		return nil, fmt.Errorf("generator: binding %s: %w", addr, err)
	}

	return &ZMQSource{ctx: ctx, socket: socket}, nil
}

// NextFrame blocks until one wire frame arrives and validates its header
// before returning, so the parser stage never has to special-case a
// malformed ZMQ payload differently than a malformed in-process one.
func (s *ZMQSource) NextFrame() ([]byte, error) {
	buf, err := s.socket.RecvBytes(0)
	if err != nil {
		return nil, fmt.Errorf("generator: receiving ZMQ frame: %w", err)
	}
	if _, err := wire.ParseHeader(buf); err != nil {
		return nil, fmt.Errorf("generator: received frame failed header validation: %w", err)
	}
	return buf, nil
}

// Close releases the socket and context.
func (s *ZMQSource) Close() {
	s.socket.Close()
	s.ctx.Term()
}
