package middleware

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/signalslot/pkg/signal"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "signalslot").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for delivery duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "signalslot",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the collectors shared by every slot wrapped against one
// registry.
type metrics struct {
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
}

// metricsKey identifies a collector set. Collectors are registered once per
// key; ConstLabels and Buckets of later calls with the same key are ignored.
type metricsKey struct {
	registry  prometheus.Registerer
	namespace string
	subsystem string
}

var (
	metricsMu    sync.Mutex
	metricsByKey = map[metricsKey]*metrics{}
)

// metricsFor returns the collectors for config, registering them on first use.
func metricsFor(config MetricsConfig) *metrics {
	key := metricsKey{config.Registry, config.Namespace, config.Subsystem}

	metricsMu.Lock()
	defer metricsMu.Unlock()

	if m, ok := metricsByKey[key]; ok {
		return m
	}
	m := initMetrics(config)
	metricsByKey[key] = m
	return m
}

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deliveries_total",
			Help:        "Total number of values delivered to slots",
			ConstLabels: config.ConstLabels,
		}, []string{"slot", "status"}),

		deliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "delivery_duration_seconds",
			Help:        "Slot delivery duration in seconds, including downstream propagation",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"slot"}),
	}
}

// Prometheus returns middleware that records delivery metrics for the
// wrapped slot under the label slot=name.
//
// Metrics collected:
//   - signalslot_deliveries_total: Counter of deliveries by slot and status
//     (success or error)
//   - signalslot_delivery_duration_seconds: Histogram of delivery duration
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	cell.Connect(middleware.Wrap[int](display,
//	    middleware.Prometheus[int]("display", middleware.WithRegistry(reg)),
//	))
func Prometheus[T any](name string, opts ...MetricsOption) Middleware[T] {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	m := metricsFor(config)
	success := m.deliveriesTotal.WithLabelValues(name, "success")
	failure := m.deliveriesTotal.WithLabelValues(name, "error")
	duration := m.deliveryDuration.WithLabelValues(name)

	return func(next signal.Slot[T]) signal.Slot[T] {
		return signal.FuncErr(func(value T) error {
			start := time.Now()
			err := next.Receive(value)
			duration.Observe(time.Since(start).Seconds())

			if err != nil {
				failure.Inc()
				return err
			}
			success.Inc()
			return nil
		})
	}
}
