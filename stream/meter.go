package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/catfuse/common"
)

// TickMeter counts elements passing a point in a pipeline and logs
// the running rate every interval until stopped.
type TickMeter struct {
	name     string
	interval time.Duration
	started  time.Time
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once

	mu   sync.Mutex
	last time.Time

	count metrics.Counter
	size  metrics.Counter
	meter metrics.Meter
}

// NewTickMeter registers its counters under name in reg.
// A nil reg uses a private registry.
func NewTickMeter(name string, interval time.Duration, reg metrics.Registry) *TickMeter {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	m := &TickMeter{
		name:     name,
		interval: interval,
		started:  time.Now(),
		done:     make(chan struct{}),
		count:    metrics.GetOrRegisterCounter(name+".count", reg),
		size:     metrics.GetOrRegisterCounter(name+".bytes", reg),
		meter:    metrics.GetOrRegisterMeter(name+".meter", reg),
	}
	if interval > 0 {
		m.ticker = time.NewTicker(interval)
		go m.run()
	}
	return m
}

// Mark records one element, its size in bytes (may be 0), and the
// data time it carried.
func (m *TickMeter) Mark(label time.Time, size int) {
	m.count.Inc(1)
	m.size.Inc(int64(size))
	m.meter.Mark(1)
	m.mu.Lock()
	if label.After(m.last) {
		m.last = label
	}
	m.mu.Unlock()
}

// Count is the number of elements marked so far.
func (m *TickMeter) Count() int64 {
	return m.count.Snapshot().Count()
}

func (m *TickMeter) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.Log()
		}
	}
}

// Log writes one progress line.
func (m *TickMeter) Log() {
	snap := m.meter.Snapshot()
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()
	slog.Info("Stream progress", "name", m.name,
		"n", humanize.Comma(m.count.Snapshot().Count()),
		"last", last.Format(time.DateTime),
		"rate", common.DecimalToFixed(snap.RateMean(), 1),
		"bytes", humanize.Bytes(uint64(m.size.Snapshot().Count())),
		"running", time.Since(m.started).Round(time.Second))
}

// Stop halts the ticker. It is safe to call more than once.
func (m *TickMeter) Stop() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
		m.meter.Stop()
	})
}
