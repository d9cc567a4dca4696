package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/model"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewStoreCollector(reg)
	if err != nil {
		t.Fatalf("NewStoreCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: gateway.FullMethod(gateway.MethodGetResource)}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		time.Sleep(2 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("NetworkStore", gateway.MethodGetResource, "OK")); got != 1 {
		t.Fatalf("netstore_store_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "netstore_store_request_duration_seconds", map[string]string{
		"service": "NetworkStore",
		"method":  gateway.MethodGetResource,
	}); count != 1 {
		t.Fatalf("netstore_store_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewStoreCollector(reg)
	if err != nil {
		t.Fatalf("NewStoreCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: gateway.FullMethod(gateway.MethodCreateResources)}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.AlreadyExists, "boom")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("NetworkStore", gateway.MethodCreateResources, "AlreadyExists")); got != 1 {
		t.Fatalf("netstore_store_requests_total error label = %v, want 1", got)
	}
}

func TestStoreCountsFollowMemoryStore(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	collector, err := NewStoreCollector(reg)
	if err != nil {
		t.Fatalf("NewStoreCollector: %v", err)
	}
	store := gateway.NewMemoryStore(gateway.WithCountsRecorder(collector))

	net := model.NewResource("n", &model.NetworkAttributes{Name: "n"})
	if err := store.CreateResources(ctx, "n", model.ResourceTypeNetwork, []*model.Resource{net}); err != nil {
		t.Fatalf("create network: %v", err)
	}
	loads := []*model.Resource{
		model.NewResource("LD1", &model.LoadAttributes{Injection: model.Injection{VoltageLevelID: "VL1"}}),
		model.NewResource("LD2", &model.LoadAttributes{Injection: model.Injection{VoltageLevelID: "VL1"}}),
	}
	if err := store.CreateResources(ctx, "n", model.ResourceTypeLoad, loads); err != nil {
		t.Fatalf("create loads: %v", err)
	}

	if got := testutil.ToFloat64(collector.StoreNetworks); got != 1 {
		t.Fatalf("netstore_store_networks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.StoreResources); got != 2 {
		t.Fatalf("netstore_store_resources = %v, want 2", got)
	}

	if err := store.DeleteNetwork(ctx, "n"); err != nil {
		t.Fatalf("DeleteNetwork: %v", err)
	}
	if got := testutil.ToFloat64(collector.StoreResources); got != 0 {
		t.Fatalf("netstore_store_resources after delete = %v, want 0", got)
	}
}

func TestMetricsHandlerExposesStoreGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewStoreCollector(reg)
	if err != nil {
		t.Fatalf("NewStoreCollector: %v", err)
	}
	collector.SetStoreCounts(3, 47)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"netstore_store_requests_total",
		"netstore_store_request_duration_seconds",
		"netstore_store_networks 3",
		"netstore_store_resources 47",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewClientCollector(reg)
	if err != nil {
		t.Fatalf("NewClientCollector: %v", err)
	}
	second, err := NewClientCollector(reg)
	if err != nil {
		t.Fatalf("second NewClientCollector: %v", err)
	}
	if first.RemoteCalls != second.RemoteCalls {
		t.Fatalf("second collector should reuse the registered counter")
	}
}

func TestClientCollectorObservesClientTraffic(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	collector, err := NewClientCollector(reg)
	if err != nil {
		t.Fatalf("NewClientCollector: %v", err)
	}

	store := gateway.NewMemoryStore()
	c, err := client.New(client.StrategyLazy, store, client.WithMetrics(collector))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	if err := c.CreateNetwork(ctx, model.NewResource("n", &model.NetworkAttributes{Name: "n"})); err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	loads := []*model.Resource{
		model.NewResource("LD1", &model.LoadAttributes{Injection: model.Injection{VoltageLevelID: "VL1"}}),
		model.NewResource("LD2", &model.LoadAttributes{Injection: model.Injection{VoltageLevelID: "VL1"}}),
	}
	if err := c.CreateResources(ctx, "n", loads...); err != nil {
		t.Fatalf("CreateResources: %v", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	load := string(model.ResourceTypeLoad)
	if got := testutil.ToFloat64(collector.RemoteCalls.WithLabelValues(load, "create", OutcomeOK)); got != 1 {
		t.Fatalf("load creates = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "netstore_client_flush_batch_size", map[string]string{
		"type": load,
		"op":   "create",
	}); count != 1 {
		t.Fatalf("flush batch samples = %d, want 1", count)
	}

	// Not created, so the cache misses.
	if _, found, err := c.GetResource(ctx, "n", model.ResourceTypeGenerator, "G1"); err != nil || found {
		t.Fatalf("GetResource(G1) found=%v err=%v", found, err)
	}
	if got := testutil.ToFloat64(collector.CacheLookups.WithLabelValues(string(model.ResourceTypeGenerator), "false")); got != 1 {
		t.Fatalf("generator cache misses = %v, want 1", got)
	}

	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "unrelated_total", Help: "not ours"})
	reg.MustRegister(other)
	var buf strings.Builder
	if err := collector.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	text := buf.String()
	if !strings.Contains(text, "# TYPE netstore_client_remote_calls_total counter") || !strings.Contains(text, `type="LOAD"`) {
		t.Fatalf("text exposition missing client calls:\n%s", text)
	}
	if strings.Contains(text, "unrelated_total") {
		t.Fatalf("text exposition should only hold client families:\n%s", text)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"transport", gateway.ErrTransport, OutcomeTransport},
		{"store", &gateway.StoreError{Op: "get", Code: codes.Internal, Err: errors.New("x")}, OutcomeStore},
		{"other", errors.New("x"), OutcomeError},
		{"retries exhausted", &gateway.StoreError{Op: "create", Code: codes.Unavailable, Err: fmt.Errorf("gave up after 2 attempts: %v", gateway.ErrTransport)}, OutcomeStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.err); got != tt.want {
				t.Fatalf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
