// Package metrics exposes volume usage and operation counters to Prometheus.
//
// The command-line front end is short-lived, so metrics are exported with
// WriteToTextfile for the node-exporter textfile collector rather than
// served over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/volume"
)

const (
	namespace = "simplefs"
	subsystem = "volume"
)

// UsageSource reports volume usage; *volume.Volume satisfies it.
type UsageSource interface {
	Usage() (volume.Usage, error)
}

// Metrics owns a registry with the operation counters registered.
type Metrics struct {
	Registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.CounterVec
}

// New creates a registry with operation counters.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Volume operations. Broken down by operation and result code.",
			},
			[]string{"operation", "code"},
		),
		duration: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds_total",
				Help:      "Total time spent in volume operations. Broken down by operation.",
			},
			[]string{"operation"},
		),
	}
	m.Registry.MustRegister(m.operations, m.duration)
	return m
}

// ObserveOperation counts one operation. Successful operations are recorded
// with code "OK", failures with their error code.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	code := "OK"
	if err != nil {
		code = string(errors.GetCode(err))
	}
	m.operations.WithLabelValues(operation, code).Inc()
	m.duration.WithLabelValues(operation).Add(time.Since(start).Seconds())
}

// WatchVolume registers gauges that read src on every collection.
func (m *Metrics) WatchVolume(src UsageSource) error {
	if err := m.Registry.Register(NewUsageCollector(src)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to register usage collector")
	}
	return nil
}

// WriteToTextfile writes every registered metric to path in the text
// exposition format. The file is replaced atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return errors.WrapWithContext(err, errors.CodeIO, "failed to write metrics textfile",
			map[string]interface{}{"path": path})
	}
	return nil
}

// UsageCollector turns volume.Usage into gauges.
type UsageCollector struct {
	src UsageSource

	capacity  *prometheus.Desc
	live      *prometheus.Desc
	garbage   *prometheus.Desc
	free      *prometheus.Desc
	highWater *prometheus.Desc
	files     *prometheus.Desc
	slots     *prometheus.Desc
}

// NewUsageCollector returns a collector over src.
func NewUsageCollector(src UsageSource) *UsageCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}
	return &UsageCollector{
		src:       src,
		capacity:  desc("capacity_bytes", "Size of the backing extent."),
		live:      desc("live_bytes", "Bytes held by valid files."),
		garbage:   desc("garbage_bytes", "Abandoned bytes below the high-water mark, reclaimable by defragmentation."),
		free:      desc("free_bytes", "Bytes above the high-water mark."),
		highWater: desc("high_water_bytes", "Offset just past the furthest live extent."),
		files:     desc("files", "Number of valid files."),
		slots:     desc("slots", "Number of metadata slots."),
	}
}

// Describe implements prometheus.Collector.
func (c *UsageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.live
	ch <- c.garbage
	ch <- c.free
	ch <- c.highWater
	ch <- c.files
	ch <- c.slots
}

// Collect implements prometheus.Collector.
func (c *UsageCollector) Collect(ch chan<- prometheus.Metric) {
	u, err := c.src.Usage()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.capacity, err)
		return
	}

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(c.capacity, float64(u.Capacity))
	gauge(c.live, float64(u.LiveBytes))
	gauge(c.garbage, float64(u.Garbage))
	gauge(c.free, float64(u.Free))
	gauge(c.highWater, float64(u.HighWater))
	gauge(c.files, float64(u.Files))
	gauge(c.slots, float64(u.Slots))
}
