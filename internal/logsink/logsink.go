// Package logsink implements the asynchronous append-only file logger
// described in spec §6.4: callers enqueue log lines and trade records
// through a bounded queue; a background flusher thread drains it in
// batches and appends to disk. Overflow uses the Drop policy: a full
// queue increments dropped_count instead of blocking the caller.
//
// Grounded on _examples/original_source/logger/include/logger/logger.h,
// translated from its Windows QueryPerformanceCounter/std::thread/
// std::ofstream machinery to clock.Monotonic, goroutines and os.File,
// and from its SPSCRingBuffer<LogEntry,1024> to internal/ring.Ring.
//
// internal/ring.Ring is strictly single-producer; Sink's event log has more
// than one caller when the pipeline's ZMQ ingress adapter is in use (both
// the agent and parser stages log onto it from their own goroutines), so
// Sink.Log serializes pushes behind a mutex rather than handing callers
// raw access to the ring. TradeSink keeps the ring's single-producer
// contract as-is: only the logger stage ever calls TradeSink.Log.
//
// TradeSink's CSV line writes price via types.Price.ToDecimal, not the raw
// tick count: the trade log is a consumer-facing boundary like the
// marketdata feed, so it carries the same decimal price representation.
package logsink

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/log"

	"github.com/vss84/hft-playpen/internal/clock"
	"github.com/vss84/hft-playpen/internal/ring"
	"github.com/vss84/hft-playpen/internal/types"
)

// Level mirrors the original logger's LogLevel enum.
type Level uint8

const (
	Debug Level = iota
	Info
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// OverflowPolicy selects what Log does when the internal queue is full.
type OverflowPolicy uint8

const (
	// Drop returns false and increments DroppedCount; this is the only
	// policy the pipeline actually wires up (§6.4).
	Drop OverflowPolicy = iota
	// Block busy-yields until the entry is accepted.
	Block
)

const (
	queueSize      = 1024
	maxPayloadLen  = 255
	flushBatchSize = 100
	idleSleep      = 50 * time.Microsecond
)

type entry struct {
	timestampNs uint64
	threadID    uint32
	level       Level
	payload     string
}

// Sink is the async file logger. One Sink is created per output file; the
// pipeline creates one for the event log, and writes the trade log (§6.6)
// through a separate TradeSink.
type Sink struct {
	queue   *ring.Ring[entry]
	file    *os.File
	writer  *bufio.Writer
	policy  OverflowPolicy
	clock   *clock.Monotonic
	logger  log.Logger
	running atomic.Bool

	// pushMu serializes Log across however many goroutines call it, turning
	// queue's single-producer contract into a multi-producer one at the
	// Sink boundary: only one goroutine ever touches queue.TryPush at a time.
	pushMu sync.Mutex

	dropped  atomic.Uint64
	enqueued atomic.Uint64

	done chan struct{}
}

// Open creates a Sink writing append-only text lines to path.
func Open(path string, policy OverflowPolicy, clk *clock.Monotonic, logger log.Logger) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open %s: %w", path, err)
	}

	s := &Sink{
		queue:  ring.New[entry](queueSize),
		file:   f,
		writer: bufio.NewWriter(f),
		policy: policy,
		clock:  clk,
		logger: logger,
		done:   make(chan struct{}),
	}
	s.running.Store(true)

	go s.flusherLoop()

	return s, nil
}

// Log enqueues a line; it returns false if the Drop policy discarded it.
// Safe to call from more than one goroutine: pushMu serializes callers onto
// queue's single logical producer slot.
func (s *Sink) Log(level Level, threadID uint32, message string) bool {
	if !s.running.Load() {
		return false
	}

	if len(message) > maxPayloadLen {
		message = message[:maxPayloadLen]
	}

	e := entry{
		timestampNs: s.clock.NowNs(),
		threadID:    threadID,
		level:       level,
		payload:     message,
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if s.policy == Drop {
		if !s.queue.TryPush(e) {
			s.dropped.Add(1)
			return false
		}
		s.enqueued.Add(1)
		return true
	}

	for {
		if s.queue.TryPush(e) {
			s.enqueued.Add(1)
			return true
		}
		// Block policy busy-yields rather than blocking the caller's
		// goroutine on a channel send, matching the original's
		// std::this_thread::yield() loop.
	}
}

// DroppedCount returns how many entries the Drop policy discarded.
func (s *Sink) DroppedCount() uint64 { return s.dropped.Load() }

// EnqueuedCount returns how many entries were accepted into the queue.
func (s *Sink) EnqueuedCount() uint64 { return s.enqueued.Load() }

// Flush blocks until the queue has drained and the underlying writer has
// been flushed to the OS.
func (s *Sink) Flush() {
	for !s.queue.IsEmpty() {
		time.Sleep(50 * time.Millisecond)
	}
	s.writer.Flush()
}

// Close stops the flusher goroutine, drains any remaining entries, and
// closes the underlying file.
func (s *Sink) Close() error {
	s.running.Store(false)
	<-s.done
	s.Flush()
	return s.file.Close()
}

func (s *Sink) flusherLoop() {
	defer close(s.done)

	for s.running.Load() || !s.queue.IsEmpty() {
		count := 0
		for count < flushBatchSize {
			e, ok := s.queue.TryPop()
			if !ok {
				break
			}
			fmt.Fprintf(s.writer, "%d %d %s %s\n", e.timestampNs, e.threadID, e.level, e.payload)
			count++
		}

		if count == 0 {
			time.Sleep(idleSleep)
			continue
		}

		s.writer.Flush()
	}
	s.writer.Flush()
}

// TradeSink is a dedicated append-only writer for trade events, carrying
// the §6.6 line format and its leading header comment. It follows the same
// bounded-queue/Drop-overflow design as Sink, with its own ring of
// TradeEvent values and its own flusher goroutine.
type TradeSink struct {
	queue     *ring.Ring[types.TradeEvent]
	file      *os.File
	writer    *bufio.Writer
	running   atomic.Bool
	dropped   atomic.Uint64
	done      chan struct{}
	publisher *NATSPublisher
}

// SetPublisher attaches an optional NATS fan-out publisher; every trade
// the flusher writes to disk is also published to TradeSubject. Passing
// nil detaches any previously set publisher.
func (ts *TradeSink) SetPublisher(p *NATSPublisher) {
	ts.publisher = p
}

// OpenTradeSink creates a trade-event log at path, writing the header
// comment line on first open.
func OpenTradeSink(path string) (*TradeSink, error) {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open trade log %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if needsHeader {
		fmt.Fprintln(w, "# timestamp_ns,maker_order_id,taker_order_id,price,quantity")
		w.Flush()
	}

	ts := &TradeSink{
		queue:  ring.New[types.TradeEvent](queueSize),
		file:   f,
		writer: w,
		done:   make(chan struct{}),
	}
	ts.running.Store(true)

	go ts.flusherLoop()

	return ts, nil
}

// Log enqueues a trade event for the background flusher. Overflow uses
// the same Drop policy as Sink.
func (ts *TradeSink) Log(trade types.TradeEvent) bool {
	if !ts.running.Load() {
		return false
	}
	if !ts.queue.TryPush(trade) {
		ts.dropped.Add(1)
		return false
	}
	return true
}

func (ts *TradeSink) DroppedCount() uint64 { return ts.dropped.Load() }

// Flush blocks until the queue has drained and the underlying writer has
// been flushed to the OS.
func (ts *TradeSink) Flush() {
	for !ts.queue.IsEmpty() {
		time.Sleep(50 * time.Millisecond)
	}
	ts.writer.Flush()
}

func (ts *TradeSink) flusherLoop() {
	defer close(ts.done)

	for ts.running.Load() || !ts.queue.IsEmpty() {
		count := 0
		for count < flushBatchSize {
			t, ok := ts.queue.TryPop()
			if !ok {
				break
			}
			fmt.Fprintf(ts.writer, "%d,%d,%d,%s,%d\n",
				t.TimestampNs, t.MakerOrderID, t.TakerOrderID, t.Price.ToDecimal().StringFixed(2), t.Quantity)
			if ts.publisher != nil {
				ts.publisher.Publish(t)
			}
			count++
		}
		if count == 0 {
			time.Sleep(idleSleep)
			continue
		}
		ts.writer.Flush()
	}
	ts.writer.Flush()
}

// Close stops the flusher goroutine, drains remaining entries, and
// closes the file.
func (ts *TradeSink) Close() error {
	ts.running.Store(false)
	<-ts.done
	ts.writer.Flush()
	return ts.file.Close()
}
