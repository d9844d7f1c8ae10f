package metrics

import (
	"github.com/marmos91/bytestream/pkg/stream"
)

// NewRemoteMetrics creates a Prometheus-backed recorder for remote stream
// traffic.
//
// Returns nil when metrics are not enabled (InitRegistry not called) or
// when the prometheus implementation package has not been imported. A nil
// recorder passed to stream.WithMetrics costs nothing.
func NewRemoteMetrics() stream.RemoteMetrics {
	if !IsEnabled() || newPrometheusRemoteMetrics == nil {
		return nil
	}
	return newPrometheusRemoteMetrics()
}

// newPrometheusRemoteMetrics is set by pkg/metrics/prometheus at package
// initialization. The indirection keeps this package free of a dependency
// on the implementation.
var newPrometheusRemoteMetrics func() stream.RemoteMetrics

// RegisterRemoteMetricsConstructor installs the Prometheus constructor.
// Called from pkg/metrics/prometheus during init.
func RegisterRemoteMetricsConstructor(constructor func() stream.RemoteMetrics) {
	newPrometheusRemoteMetrics = constructor
}
