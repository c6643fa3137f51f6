package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "icsneo").
	Namespace string

	// ConstLabels are constant labels added to all metrics, typically the
	// device serial number.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for sync waits.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the sync wait histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "icsneo",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors for one device link.
type Metrics struct {
	rxBytes        prometheus.Counter
	txBytes        prometheus.Counter
	packets        prometheus.Counter
	messages       *prometheus.CounterVec
	decodeFailures prometheus.Counter
	events         *prometheus.CounterVec
	syncWait       prometheus.Histogram
	syncTimeouts   prometheus.Counter
	pollingDepth   prometheus.Gauge
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		rxBytes:        counter("rx_bytes_total", "Total bytes read from the transport"),
		txBytes:        counter("tx_bytes_total", "Total bytes written to the transport"),
		packets:        counter("packets_total", "Total packets framed from the byte stream"),
		decodeFailures: counter("decode_failures_total", "Total packets the decoder rejected"),
		syncTimeouts:   counter("sync_timeouts_total", "Total request/response waits that timed out"),

		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_total",
			Help:        "Total decoded messages by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Total reported events by type and severity",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "severity"}),

		syncWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "sync_wait_seconds",
			Help:        "Time spent waiting for a device response",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		pollingDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "polling_queue_depth",
			Help:        "Messages waiting in the polling queue",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) BytesRead(n int) {
	if m == nil {
		return
	}
	m.rxBytes.Add(float64(n))
}

func (m *Metrics) BytesWritten(n int) {
	if m == nil {
		return
	}
	m.txBytes.Add(float64(n))
}

func (m *Metrics) PacketsFramed(n int) {
	if m == nil {
		return
	}
	m.packets.Add(float64(n))
}

func (m *Metrics) MessageDecoded(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) DecodeFailed() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

func (m *Metrics) Event(typ, severity string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(typ, severity).Inc()
}

// SyncWait records one request/response wait.
func (m *Metrics) SyncWait(d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.syncWait.Observe(d.Seconds())
	if timedOut {
		m.syncTimeouts.Inc()
	}
}

func (m *Metrics) PollingDepth(n int) {
	if m == nil {
		return
	}
	m.pollingDepth.Set(float64(n))
}
