// Package pipeline wires the four pipeline stages -- generator, parser,
// matching engine, log sink -- around three SPSC queues, one goroutine per
// stage, exactly as described in spec §4.4/§4.1. Backpressure is
// yield-and-retry; the only drop policy in the system lives inside the
// log sink (§6.4), never on the hot path.
//
// Grounded on _examples/original_source/trading_pipeline/include/trading_pipeline/trading_pipeline.h
// and its out-of-line src/trading_pipeline.cpp, translated from
// std::thread/std::atomic<bool> to goroutines and atomic.Bool.
package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/vss84/hft-playpen/internal/clock"
	"github.com/vss84/hft-playpen/internal/generator"
	"github.com/vss84/hft-playpen/internal/logsink"
	"github.com/vss84/hft-playpen/internal/marketdata"
	"github.com/vss84/hft-playpen/internal/matching"
	"github.com/vss84/hft-playpen/internal/metrics"
	"github.com/vss84/hft-playpen/internal/ring"
	"github.com/vss84/hft-playpen/internal/types"
	"github.com/vss84/hft-playpen/internal/wire"
)

const ringBufferSize = 1024

// Pipeline owns the generator, parser, matching engine and log sink for
// one symbol, plus the queues and goroutines connecting them.
type Pipeline struct {
	symbolID uint32
	logger   log.Logger
	metrics  *metric.Registry

	agentToParser  *ring.Ring[[]byte]
	parserToEngine *ring.Ring[types.OrderRequest]
	engineToLogger *ring.Ring[types.TradeEvent]

	gen         *generator.Generator
	zmqSource   *generator.ZMQSource
	engine      *matching.Engine
	sink        *logsink.Sink
	trades      *logsink.TradeSink
	marketfeed  *marketdata.Broadcaster
	promMetrics *metrics.PipelineMetrics

	running atomic.Bool
	wg      sync.WaitGroup

	ordersGenerated atomic.Uint64
	ordersParsed    atomic.Uint64
	ordersMatched   atomic.Uint64
	tradesLogged    atomic.Uint64
}

// Config parameterizes a Pipeline.
type Config struct {
	SymbolID     uint32
	EventLog     string
	TradeLog     string
	GeneratorCfg generator.Config
}

// DefaultConfig returns the pipeline defaults (§6.3: one configured
// symbol, trades.log output).
func DefaultConfig() Config {
	return Config{
		SymbolID:     1,
		EventLog:     "events.log",
		TradeLog:     "trades.log",
		GeneratorCfg: generator.DefaultConfig(),
	}
}

// New constructs a Pipeline, opening its log sinks eagerly so that
// construction failures surface before Start is ever called.
func New(cfg Config, logger log.Logger, registry *metric.Registry) (*Pipeline, error) {
	clk := clock.New()

	cfg.GeneratorCfg.SymbolID = cfg.SymbolID

	sink, err := logsink.Open(cfg.EventLog, logsink.Drop, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening event log: %w", err)
	}

	tradeSink, err := logsink.OpenTradeSink(cfg.TradeLog)
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("pipeline: opening trade log: %w", err)
	}

	return &Pipeline{
		symbolID:       cfg.SymbolID,
		logger:         logger,
		metrics:        registry,
		agentToParser:  ring.New[[]byte](ringBufferSize),
		parserToEngine: ring.New[types.OrderRequest](ringBufferSize),
		engineToLogger: ring.New[types.TradeEvent](ringBufferSize),
		gen:            generator.New(cfg.GeneratorCfg, clk),
		engine:         matching.New(logger),
		sink:           sink,
		trades:         tradeSink,
	}, nil
}

// Start launches the four stage goroutines. Calling Start twice is a
// no-op, matching the original's exchange(true) guard.
func (p *Pipeline) Start() {
	if p.running.Swap(true) {
		return
	}

	p.logger.Info("starting trading pipeline")

	p.wg.Add(4)
	go p.loggerStage()
	go p.engineStage()
	go p.parserStage()
	go p.agentStage()

	p.logger.Info("pipeline started with 4 goroutines")
}

// Stop signals all stages to exit, waits for them, flushes both log sinks
// and prints final counters. Requests still queued between stages when the
// flag flips are not processed.
func (p *Pipeline) Stop() {
	if !p.running.Swap(false) {
		return
	}

	p.logger.Info("stopping trading pipeline")
	p.wg.Wait()

	p.sink.Flush()
	p.trades.Flush()

	p.PrintStats()
}

// Close releases the underlying log files. Call after Stop.
func (p *Pipeline) Close() error {
	err1 := p.sink.Close()
	err2 := p.trades.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// SetTradePublisher attaches an optional NATS fan-out publisher to the
// trade log sink. Passing nil detaches any previously attached publisher.
func (p *Pipeline) SetTradePublisher(pub *logsink.NATSPublisher) {
	p.trades.SetPublisher(pub)
}

// PrintStats prints the four pipeline counters to stdout (§6.3).
func (p *Pipeline) PrintStats() {
	fmt.Println()
	fmt.Println("=== Pipeline Statistics ===")
	fmt.Printf("Orders Generated: %d\n", p.ordersGenerated.Load())
	fmt.Printf("Orders Parsed: %d\n", p.ordersParsed.Load())
	fmt.Printf("Orders Matched: %d\n", p.ordersMatched.Load())
	fmt.Printf("Trades Logged: %d\n", p.tradesLogged.Load())
	fmt.Println("========================")
}

func (p *Pipeline) agentStage() {
	defer p.wg.Done()
	p.logger.Debug("agent stage started")

	if p.zmqSource != nil {
		p.agentStageZMQ()
		return
	}

	for p.running.Load() {
		req := p.gen.GenerateNext()

		var buf []byte
		switch req.Kind {
		case types.RequestNewOrder:
			buf = wire.EncodeNewOrder(req.Order)
		case types.RequestCancelOrder:
			buf = wire.EncodeCancel(req.CancelID, req.SymbolID)
		default:
			continue
		}

		for !p.agentToParser.TryPush(buf) {
			if !p.running.Load() {
				return
			}
			runtime.Gosched()
		}

		p.ordersGenerated.Add(1)
		p.metrics.Counter("hft_orders_generated_total").Inc(1)
		if p.promMetrics != nil {
			p.promMetrics.RecordGenerated()
			p.promMetrics.SetQueueDepth("agent_to_parser", float64(p.agentToParser.Len()))
		}

		delay := p.gen.NextArrivalDelayNs()
		if delay > 0 {
			time.Sleep(time.Duration(delay))
		}
	}

	p.logger.Debug("agent stage stopped")
}

// agentStageZMQ is the ZMQ-ingress variant of agentStage: frames arrive
// already wire-encoded from an external producer instead of being
// synthesized in-process.
func (p *Pipeline) agentStageZMQ() {
	for p.running.Load() {
		buf, err := p.zmqSource.NextFrame()
		if err != nil {
			p.sink.Log(logsink.Warning, 0, fmt.Sprintf("zmq ingress error: %v", err))
			continue
		}

		for !p.agentToParser.TryPush(buf) {
			if !p.running.Load() {
				return
			}
			runtime.Gosched()
		}

		p.ordersGenerated.Add(1)
		p.metrics.Counter("hft_orders_generated_total").Inc(1)
		if p.promMetrics != nil {
			p.promMetrics.RecordGenerated()
			p.promMetrics.SetQueueDepth("agent_to_parser", float64(p.agentToParser.Len()))
		}
	}

	p.logger.Debug("agent stage (zmq) stopped")
}

func (p *Pipeline) parserStage() {
	defer p.wg.Done()
	p.logger.Debug("parser stage started")

	for p.running.Load() {
		buf, ok := p.agentToParser.TryPop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}

		req, err := wire.Decode(buf)
		if err != nil {
			p.sink.Log(logsink.Warning, 0, fmt.Sprintf("parse error: %v", err))
			continue
		}

		for !p.parserToEngine.TryPush(req) {
			if !p.running.Load() {
				return
			}
			runtime.Gosched()
		}

		p.ordersParsed.Add(1)
		p.metrics.Counter("hft_orders_parsed_total").Inc(1)
		if p.promMetrics != nil {
			p.promMetrics.RecordParsed()
			p.promMetrics.SetQueueDepth("parser_to_engine", float64(p.parserToEngine.Len()))
		}
	}

	p.logger.Debug("parser stage stopped")
}

func (p *Pipeline) engineStage() {
	defer p.wg.Done()
	p.logger.Debug("engine stage started")

	for p.running.Load() {
		req, ok := p.parserToEngine.TryPop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}

		start := time.Now()
		p.engine.Process(req)
		elapsedNs := time.Since(start).Nanoseconds()

		p.ordersMatched.Add(1)
		p.metrics.Counter("hft_orders_matched_total").Inc(1)
		if p.promMetrics != nil {
			p.promMetrics.RecordMatched()
			p.promMetrics.RecordMatchLatency(float64(elapsedNs))
			p.promMetrics.SetQueueDepth("parser_to_engine", float64(p.parserToEngine.Len()))
			p.promMetrics.SetQueueDepth("engine_to_logger", float64(p.engineToLogger.Len()))
		}

		if p.marketfeed != nil {
			p.marketfeed.Publish(p.engine.Book().SnapshotTop(10))
		}

		for _, trade := range p.engine.DrainTrades() {
			for !p.engineToLogger.TryPush(trade) {
				if !p.running.Load() {
					return
				}
				runtime.Gosched()
			}
		}
	}

	p.logger.Debug("engine stage stopped")
}

func (p *Pipeline) loggerStage() {
	defer p.wg.Done()
	p.logger.Debug("logger stage started")

	for p.running.Load() {
		trade, ok := p.engineToLogger.TryPop()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}

		logged := p.trades.Log(trade)
		p.tradesLogged.Add(1)
		p.metrics.Counter("hft_trades_logged_total").Inc(1)
		if p.promMetrics != nil {
			p.promMetrics.RecordLogged()
			if !logged {
				p.promMetrics.RecordDropped()
			}
			p.promMetrics.SetQueueDepth("engine_to_logger", float64(p.engineToLogger.Len()))
		}
	}

	p.logger.Debug("logger stage stopped")
}

// Engine exposes the underlying matching engine for read-only access
// (e.g. market-data snapshots).
func (p *Pipeline) Engine() *matching.Engine { return p.engine }

// Generator exposes the underlying synthetic order generator so callers
// can pre-generate a burst (GenerateBurst) before Start, for load-testing
// use cases outside the steady-state pipeline loop.
func (p *Pipeline) Generator() *generator.Generator { return p.gen }

// UseZMQIngress replaces the in-process generator as the agent stage's
// frame source with src: instead of synthesizing its own orders, the
// agent stage blocks on src.NextFrame() for each frame. The parser stage
// is unaffected; it never knows which ingress adapter produced the bytes
// it decodes. Must be called before Start.
func (p *Pipeline) UseZMQIngress(src *generator.ZMQSource) {
	p.zmqSource = src
}

// SetMarketFeed attaches an optional top-of-book broadcaster. When set,
// the engine stage publishes a snapshot after every processed request.
// Passing nil detaches any previously attached feed.
func (p *Pipeline) SetMarketFeed(feed *marketdata.Broadcaster) {
	p.marketfeed = feed
}

// SetPrometheusMetrics attaches an optional Prometheus mirror of the
// pipeline's stage counters and queue depths. When set, every stage records
// into it alongside the plain atomics and the luxfi/metric registry.
// Passing nil detaches any previously attached instruments.
func (p *Pipeline) SetPrometheusMetrics(m *metrics.PipelineMetrics) {
	p.promMetrics = m
}
