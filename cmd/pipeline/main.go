// Command pipeline runs the in-process trading pipeline for a single
// configured symbol, for a bounded duration, printing counters to
// standard output on exit (§6.3).
//
// Grounded on _examples/original_source/trading_pipeline's main-less
// TradingPipeline class (the original ties it to a test harness rather
// than a standalone binary) and on the teacher's own cmd/ entry points
// (e.g. backend/cmd/turbo-hybrid/main.go) for flag-based configuration
// and logger/metrics construction.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/vss84/hft-playpen/internal/generator"
	"github.com/vss84/hft-playpen/internal/logsink"
	"github.com/vss84/hft-playpen/internal/marketdata"
	"github.com/vss84/hft-playpen/internal/metrics"
	"github.com/vss84/hft-playpen/internal/pipeline"
)

func main() {
	symbolID := flag.Uint("symbol", 1, "symbol id to trade")
	duration := flag.Duration("duration", 10*time.Second, "how long to run the pipeline")
	eventLog := flag.String("event-log", "events.log", "path to the async event log")
	tradeLog := flag.String("trade-log", "trades.log", "path to the trade log")
	seed := flag.Int64("seed", 1, "generator PRNG seed")
	burst := flag.Int("burst", 0, "generate N requests up front via GenerateBurst before running the pipeline, for load testing")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables it)")
	marketAddr := flag.String("marketdata-addr", "", "address to serve the read-only top-of-book WebSocket feed on (empty disables it)")
	natsURL := flag.String("nats", "", "NATS URL to fan out trades on (empty disables publishing)")
	zmqAddr := flag.String("zmq-addr", "", "bind a ZeroMQ PULL socket at this address and use it as the agent stage's frame source instead of the in-process generator (empty disables it)")
	flag.Parse()

	logger := log.NewLogger("hft-pipeline")
	registry := metric.NewRegistry()

	cfg := pipeline.DefaultConfig()
	cfg.SymbolID = uint32(*symbolID)
	cfg.EventLog = *eventLog
	cfg.TradeLog = *tradeLog
	cfg.GeneratorCfg = generator.DefaultConfig()
	cfg.GeneratorCfg.SymbolID = uint32(*symbolID)
	cfg.GeneratorCfg.Seed = *seed

	p, err := pipeline.New(cfg, logger, registry)
	if err != nil {
		logger.Fatal("failed to construct pipeline", "error", err)
		os.Exit(1)
	}

	if *burst > 0 {
		runBurst(p, *burst, logger)
	}

	if *zmqAddr != "" {
		src, err := generator.NewZMQSource(*zmqAddr)
		if err != nil {
			logger.Fatal("failed to bind ZMQ ingress", "error", err)
			os.Exit(1)
		}
		defer src.Close()
		p.UseZMQIngress(src)
		logger.Info("using ZMQ ingress instead of in-process generator", "addr", *zmqAddr)
	}

	if *metricsAddr != "" {
		pm := metrics.New("hft", logger)
		p.SetPrometheusMetrics(pm)
		stop := make(chan struct{})
		defer close(stop)
		pm.CollectRuntimeStats(10*time.Second, stop)
		pm.Serve(*metricsAddr)
	}

	if *marketAddr != "" {
		feed := marketdata.New(fmt.Sprintf("symbol-%d", *symbolID), logger)
		p.SetMarketFeed(feed)

		mux := http.NewServeMux()
		mux.HandleFunc("/marketdata", feed.ServeHTTP)
		go func() {
			if err := http.ListenAndServe(*marketAddr, mux); err != nil {
				logger.Error("marketdata server failed", "error", err)
			}
		}()
	}

	if *natsURL != "" {
		pub, err := logsink.NewNATSPublisher(*natsURL)
		if err != nil {
			logger.Error("failed to connect trade publisher to NATS", "error", err)
		} else {
			defer pub.Close()
			p.SetTradePublisher(pub)
		}
	}

	fmt.Println("Starting trading pipeline...")
	p.Start()

	time.Sleep(*duration)

	p.Stop()
	if err := p.Close(); err != nil {
		logger.Error("error closing pipeline logs", "error", err)
	}
}

// runBurst generates count synthetic requests up front via
// generator.GenerateBurst and feeds them straight into the matching
// engine, bypassing the queues so the book is pre-populated before the
// steady-state pipeline goroutines start. This mirrors
// original_source's OrderGenerator::GenerateBurst use case for load
// testing (§SUPPLEMENTED FEATURES item 2).
func runBurst(p *pipeline.Pipeline, count int, logger log.Logger) {
	logger.Info("pre-generating burst before starting pipeline", "count", count)

	reqs := p.Generator().GenerateBurst(count)
	for _, req := range reqs {
		p.Engine().Process(req)
	}
	p.Engine().DrainTrades() // discard: these trades predate pipeline start

	logger.Info("burst complete", "requests", len(reqs))
}
