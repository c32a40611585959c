package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vss84/hft-playpen/internal/metrics"
)

func TestPipelineStartStopProducesStats(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.EventLog = filepath.Join(dir, "events.log")
	cfg.TradeLog = filepath.Join(dir, "trades.log")
	cfg.GeneratorCfg.Seed = 1

	p, err := New(cfg, log.NewLogger("pipeline-test"), metric.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	p.Start()
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if p.ordersGenerated.Load() == 0 {
		t.Fatal("expected at least one order to have been generated")
	}

	if _, err := os.Stat(cfg.TradeLog); err != nil {
		t.Fatalf("expected trade log to exist: %v", err)
	}
}

// TestPrometheusMetricsMirrorPlainCounters confirms SetPrometheusMetrics
// actually gets fed: the exported Prometheus counters must track the
// pipeline's own atomics rather than sitting at zero forever.
func TestPrometheusMetricsMirrorPlainCounters(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.EventLog = filepath.Join(dir, "events.log")
	cfg.TradeLog = filepath.Join(dir, "trades.log")
	cfg.GeneratorCfg.Seed = 1

	p, err := New(cfg, log.NewLogger("pipeline-test"), metric.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	pm := metrics.New("hft_test_mirror", log.NewLogger("pipeline-test-metrics"))
	p.SetPrometheusMetrics(pm)

	p.Start()
	time.Sleep(50 * time.Millisecond)
	p.Stop()
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	generated := testutil.ToFloat64(pm.OrdersGeneratedCounter())
	if generated == 0 {
		t.Fatal("expected the Prometheus orders_generated_total counter to be nonzero")
	}
	if uint64(generated) != p.ordersGenerated.Load() {
		t.Fatalf("prometheus counter %v diverged from plain atomic %d", generated, p.ordersGenerated.Load())
	}
}

func TestPipelineStartIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.EventLog = filepath.Join(dir, "events.log")
	cfg.TradeLog = filepath.Join(dir, "trades.log")

	p, err := New(cfg, log.NewLogger("pipeline-test"), metric.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	p.Start()
	p.Start() // second call must be a no-op, not a second set of goroutines
	time.Sleep(10 * time.Millisecond)
	p.Stop()
	p.Close()
}
