package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported Prometheus metric
const Namespace = "htmlinclude"

// Collector tracks include processing counters with atomic updates.
// A nil *Collector is valid and records nothing.
type Collector struct {
	counters  *IncludeMetrics
	mu        sync.RWMutex
	startTime time.Time
}

// IncludeMetrics is a point-in-time view of the collector
type IncludeMetrics struct {
	// Documents
	PagesProcessed int64 `json:"pages_processed"`

	// Directives and fetches
	DirectivesFound      int64 `json:"directives_found"`
	FetchRequests        int64 `json:"fetch_requests"`
	ActiveFetches        int64 `json:"active_fetches"`
	MaxConcurrentFetches int64 `json:"max_concurrent_fetches"`

	// Outcomes
	IncludesPopulated int64 `json:"includes_populated"`
	IncludesFailed    int64 `json:"includes_failed"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	now := time.Now()
	return &Collector{
		counters:  &IncludeMetrics{StartTime: now},
		startTime: now,
	}
}

// AddDirectivesFound records n include directives discovered in a document
func (c *Collector) AddDirectivesFound(n int) {
	if c == nil || n <= 0 {
		return
	}
	atomic.AddInt64(&c.counters.DirectivesFound, int64(n))
}

// IncrementFetchStarted records a fetch leaving for its resource
func (c *Collector) IncrementFetchStarted() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.counters.FetchRequests, 1)
	currentActive := atomic.AddInt64(&c.counters.ActiveFetches, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.counters.MaxConcurrentFetches)
		if currentActive <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.counters.MaxConcurrentFetches, max, currentActive) {
			break
		}
	}
}

// IncrementFetchFinished records a fetch returning, successfully or not
func (c *Collector) IncrementFetchFinished() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.counters.ActiveFetches, -1)
}

// IncrementPopulated records an element filled with its fragment
func (c *Collector) IncrementPopulated() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.counters.IncludesPopulated, 1)
}

// IncrementFailed records an element left with the error placeholder
func (c *Collector) IncrementFailed() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.counters.IncludesFailed, 1)
}

// IncrementPagesProcessed records one processed document
func (c *Collector) IncrementPagesProcessed() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.counters.PagesProcessed, 1)
}

// GetMetrics returns current include metrics
func (c *Collector) GetMetrics() IncludeMetrics {
	if c == nil {
		return IncludeMetrics{}
	}

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	return IncludeMetrics{
		PagesProcessed:       atomic.LoadInt64(&c.counters.PagesProcessed),
		DirectivesFound:      atomic.LoadInt64(&c.counters.DirectivesFound),
		FetchRequests:        atomic.LoadInt64(&c.counters.FetchRequests),
		ActiveFetches:        atomic.LoadInt64(&c.counters.ActiveFetches),
		MaxConcurrentFetches: atomic.LoadInt64(&c.counters.MaxConcurrentFetches),
		IncludesPopulated:    atomic.LoadInt64(&c.counters.IncludesPopulated),
		IncludesFailed:       atomic.LoadInt64(&c.counters.IncludesFailed),
		StartTime:            startTime,
		Uptime:               time.Since(startTime),
	}
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.counters.PagesProcessed, 0)
	atomic.StoreInt64(&c.counters.DirectivesFound, 0)
	atomic.StoreInt64(&c.counters.FetchRequests, 0)
	atomic.StoreInt64(&c.counters.ActiveFetches, 0)
	atomic.StoreInt64(&c.counters.MaxConcurrentFetches, 0)
	atomic.StoreInt64(&c.counters.IncludesPopulated, 0)
	atomic.StoreInt64(&c.counters.IncludesFailed, 0)

	c.startTime = time.Now()
}

// GetFailureRate returns the percentage of resolved includes that failed
func (c *Collector) GetFailureRate() float64 {
	m := c.GetMetrics()

	total := m.IncludesPopulated + m.IncludesFailed
	if total == 0 {
		return 0.0
	}

	return float64(m.IncludesFailed) / float64(total) * 100.0
}

// Register exposes the collector's counters on reg. A nil collector
// registers nothing.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	load := func(p *int64) func() float64 {
		return func() float64 { return float64(atomic.LoadInt64(p)) }
	}

	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_processed_total",
			Help:      "Documents scanned for include directives.",
		}, load(&c.counters.PagesProcessed)),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "directives_found_total",
			Help:      "Include directives discovered.",
		}, load(&c.counters.DirectivesFound)),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_requests_total",
			Help:      "Fragment fetches issued.",
		}, load(&c.counters.FetchRequests)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_fetches",
			Help:      "Fragment fetches in flight.",
		}, load(&c.counters.ActiveFetches)),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "includes_populated_total",
			Help:      "Elements populated with their fragment.",
		}, load(&c.counters.IncludesPopulated)),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "includes_failed_total",
			Help:      "Elements replaced with the error placeholder.",
		}, load(&c.counters.IncludesFailed)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the collector was created or reset.",
		}, func() float64 { return c.GetMetrics().Uptime.Seconds() }),
	}

	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}
