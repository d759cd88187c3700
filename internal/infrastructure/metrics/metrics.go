// Package metrics exposes climate device state and IR activity as
// Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "irclimate"

// Transmission results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var deviceLabels = []string{"device_id"}

// Metrics owns a private registry. All methods are safe on a nil receiver so
// callers can run with metrics disabled.
type Metrics struct {
	reg *prometheus.Registry

	transmissions   *prometheus.CounterVec
	lookupMisses    *prometheus.CounterVec
	adapterFailures *prometheus.CounterVec

	ambient  *prometheus.GaugeVec
	target   *prometheus.GaugeVec
	power    *prometheus.GaugeVec
	away     *prometheus.GaugeVec
	features *prometheus.GaugeVec
}

// New builds and registers the climate collectors plus the Go runtime and
// build info collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		reg: prometheus.NewRegistry(),
		transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ir",
			Name:      "transmissions_total",
			Help:      "IR codes handed to the transmitter.",
		}, []string{"device_id", "result"}),
		lookupMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "lookup_misses_total",
			Help:      "Resolutions that found no command, by missing level.",
		}, []string{"device_id", "level"}),
		adapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "adapter_failures_total",
			Help:      "Sensor parse and power evaluation failures.",
		}, []string{"device_id", "adapter"}),
		ambient: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "current_temperature",
			Help:      "Ambient temperature in device units.",
		}, deviceLabels),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "target_temperature",
			Help:      "Target temperature in device units.",
		}, deviceLabels),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "on",
			Help:      "1 when the unit is believed to be running.",
		}, deviceLabels),
		away: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "away",
			Help:      "1 when away mode is active.",
		}, deviceLabels),
		features: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "climate",
			Name:      "supported_features",
			Help:      "Currently enabled feature bit set.",
		}, deviceLabels),
	}

	m.reg.MustRegister(collectors.NewBuildInfoCollector())
	m.reg.MustRegister(collectors.NewGoCollector())
	m.reg.MustRegister(
		m.transmissions,
		m.lookupMisses,
		m.adapterFailures,
		m.ambient,
		m.target,
		m.power,
		m.away,
		m.features,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveTransmission counts one transmit attempt.
func (m *Metrics) ObserveTransmission(deviceID string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.transmissions.WithLabelValues(deviceID, result).Inc()
}

// ObserveLookupMiss counts a resolution that found no command.
func (m *Metrics) ObserveLookupMiss(deviceID, level string) {
	if m == nil {
		return
	}
	m.lookupMisses.WithLabelValues(deviceID, level).Inc()
}

// ObserveAdapterFailure counts a sensor or power adapter failure.
func (m *Metrics) ObserveAdapterFailure(deviceID, adapter string) {
	if m == nil {
		return
	}
	m.adapterFailures.WithLabelValues(deviceID, adapter).Inc()
}

// ObserveState records the latest device state. A nil current temperature
// removes the ambient series.
func (m *Metrics) ObserveState(deviceID string, on, away bool, target float64, current *float64, features uint32) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"device_id": deviceID}

	m.power.With(labels).Set(boolGauge(on))
	m.away.With(labels).Set(boolGauge(away))
	m.target.With(labels).Set(target)
	m.features.With(labels).Set(float64(features))

	if current == nil {
		m.ambient.Delete(labels)
	} else {
		m.ambient.With(labels).Set(*current)
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
