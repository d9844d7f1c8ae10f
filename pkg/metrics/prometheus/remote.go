// Package prometheus holds the Prometheus implementations behind the
// constructors in pkg/metrics. Importing it (for side effects) is what
// makes those constructors return live recorders.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/bytestream/pkg/metrics"
	"github.com/marmos91/bytestream/pkg/stream"
)

func init() {
	metrics.RegisterRemoteMetricsConstructor(NewRemoteMetrics)
}

// remoteMetrics is the Prometheus implementation of stream.RemoteMetrics.
type remoteMetrics struct {
	probes      prometheus.Counter
	fetches     prometheus.Counter
	fetchBlocks prometheus.Counter
	fetchBytes  prometheus.Counter
	pushes      prometheus.Counter
	pushBytes   prometheus.Counter
}

// NewRemoteMetrics creates a Prometheus-backed remote traffic recorder.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRemoteMetrics() stream.RemoteMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &remoteMetrics{
		probes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bytestream_remote_probes_total",
			Help: "Total number of remote length probes",
		}),
		fetches: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bytestream_remote_fetches_total",
			Help: "Total number of remote range fetches",
		}),
		fetchBlocks: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bytestream_remote_fetch_blocks_total",
			Help: "Total number of blocks materialized by range fetches",
		}),
		fetchBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bytestream_remote_fetch_bytes_total",
			Help: "Total bytes downloaded by range fetches",
		}),
		pushes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bytestream_remote_pushes_total",
			Help: "Total number of diff write-back uploads",
		}),
		pushBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bytestream_remote_push_bytes_total",
			Help: "Total bytes uploaded by diff write-backs",
		}),
	}
}

func (m *remoteMetrics) ObserveProbe() {
	if m == nil {
		return
	}
	m.probes.Inc()
}

func (m *remoteMetrics) ObserveFetch(blocks, bytes int) {
	if m == nil {
		return
	}
	m.fetches.Inc()
	m.fetchBlocks.Add(float64(blocks))
	m.fetchBytes.Add(float64(bytes))
}

func (m *remoteMetrics) ObservePush(bytes int) {
	if m == nil {
		return
	}
	m.pushes.Inc()
	m.pushBytes.Add(float64(bytes))
}
