package observability

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/model"
)

// Outcome labels of netstore_client_remote_calls_total.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeStore     = "store"
	OutcomeError     = "error"
)

// ClientCollector exposes the client-side metrics: remote store calls,
// cache lookups and flushed batch sizes.
type ClientCollector struct {
	gatherer prometheus.Gatherer

	RemoteCalls        *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
	FlushBatchSize     *prometheus.HistogramVec
}

var _ client.Metrics = (*ClientCollector)(nil)

// NewClientCollector registers client metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewClientCollector(reg prometheus.Registerer) (*ClientCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netstore_client_remote_calls_total",
		Help: "Remote store calls issued by the client, labeled by resource type, operation, and outcome.",
	}, []string{"type", "op", "outcome"})
	calls, err := registerCounterVec(reg, calls, "netstore_client_remote_calls_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netstore_client_remote_call_duration_seconds",
		Help:    "Latency of remote store calls in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"op"})
	durations, err = registerHistogramVec(reg, durations, "netstore_client_remote_call_duration_seconds")
	if err != nil {
		return nil, err
	}

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netstore_client_cache_lookups_total",
		Help: "Resource cache lookups, labeled by resource type and whether they were answered locally.",
	}, []string{"type", "hit"})
	lookups, err = registerCounterVec(reg, lookups, "netstore_client_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	batches := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netstore_client_flush_batch_size",
		Help:    "Number of resources sent per batched create or update during flush.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"type", "op"})
	batches, err = registerHistogramVec(reg, batches, "netstore_client_flush_batch_size")
	if err != nil {
		return nil, err
	}

	return &ClientCollector{
		gatherer:           gatherer,
		RemoteCalls:        calls,
		RemoteCallDuration: durations,
		CacheLookups:       lookups,
		FlushBatchSize:     batches,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ClientCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ClientCollector) Handler() http.Handler {
	return handlerFor(c.Gatherer())
}

// WriteText writes the netstore_client_* families in the Prometheus text
// exposition format.
func (c *ClientCollector) WriteText(w io.Writer) error {
	families, err := c.Gatherer().Gather()
	if err != nil {
		return fmt.Errorf("gather client metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "netstore_client_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRemoteCall records one gateway call.
func (c *ClientCollector) ObserveRemoteCall(t model.ResourceType, op string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.RemoteCalls.WithLabelValues(t.String(), op, Outcome(err)).Inc()
	c.RemoteCallDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveCacheLookup records whether a cache read was answered without a
// remote call.
func (c *ClientCollector) ObserveCacheLookup(t model.ResourceType, hit bool) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(t.String(), strconv.FormatBool(hit)).Inc()
}

// ObserveFlushBatch records the size of a batch sent during flush.
func (c *ClientCollector) ObserveFlushBatch(t model.ResourceType, op string, size int) {
	if c == nil {
		return
	}
	c.FlushBatchSize.WithLabelValues(t.String(), op).Observe(float64(size))
}

// Outcome classifies a remote call error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case gateway.IsTransport(err):
		return OutcomeTransport
	case errors.Is(err, gateway.ErrStore):
		return OutcomeStore
	default:
		return OutcomeError
	}
}
