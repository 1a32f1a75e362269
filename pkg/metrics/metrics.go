// Package metrics owns the Prometheus registry for the message board.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "messageboard"

// Registry is the application registry. The default global registry is left alone
// so tests and tools can build several clients without duplicate registration.
var Registry = prometheus.NewRegistry()

var (
	// RemoteRequests counts calls made to the comment thread API
	RemoteRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "github",
		Name:      "requests_total",
		Help:      "Requests sent to the remote comment thread, by operation and status code.",
	}, []string{"op", "status"})

	// RemoteLatency observes remote call latency
	RemoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "github",
		Name:      "request_duration_seconds",
		Help:      "Latency of remote comment thread calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// NormalizedRecords counts which normalization path each raw record took
	NormalizedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalize",
		Name:      "records_total",
		Help:      "Raw comment records by normalization path (parsed, plaintext, discarded).",
	}, []string{"path"})

	// StoreOperations counts repository operations by backend and outcome
	StoreOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Message repository operations by backend, operation and result.",
	}, []string{"backend", "op", "result"})

	// StoreCorruptions counts unreadable local documents recovered as empty lists
	StoreCorruptions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "corruptions_total",
		Help:      "Local message documents that failed to parse and were treated as empty.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RemoteRequests,
		RemoteLatency,
		NormalizedRecords,
		StoreOperations,
		StoreCorruptions,
	)
}

// ObserveRemote records one remote call. status is 0 when no response arrived.
func ObserveRemote(op string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	RemoteRequests.WithLabelValues(op, label).Inc()
	RemoteLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveStore records a repository operation outcome
func ObserveStore(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(backend, op, result).Inc()
}

// Handler exposes the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
