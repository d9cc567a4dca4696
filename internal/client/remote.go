package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
)

const tracerName = "github.com/signalsfoundry/netstore/internal/client"

// BatchWriter is what a WriteBuffer drains into.
type BatchWriter interface {
	CreateBatch(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error
	UpdateBatch(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error
	DeleteResource(ctx context.Context, networkID string, t model.ResourceType, id string) error
	DeleteNetwork(ctx context.Context, networkID string) error
}

// remoteClient forwards every call to the gateway immediately. It owns the
// create retry policy, metrics and tracing of remote calls.
type remoteClient struct {
	gw         gateway.Gateway
	log        logging.Logger
	metrics    Metrics
	tracer     trace.Tracer
	retryDelay time.Duration
}

func newRemoteClient(gw gateway.Gateway, o options) *remoteClient {
	return &remoteClient{
		gw:         gw,
		log:        o.log,
		metrics:    o.metrics,
		tracer:     otel.Tracer(tracerName),
		retryDelay: o.retryDelay,
	}
}

var (
	_ NetworkStoreClient = (*remoteClient)(nil)
	_ BatchWriter        = (*remoteClient)(nil)
)

func (c *remoteClient) ListNetworks(ctx context.Context) ([]gateway.NetworkInfo, error) {
	var out []gateway.NetworkInfo
	err := c.do(ctx, model.ResourceTypeNetwork, "list", "", func(ctx context.Context) error {
		var err error
		out, err = c.gw.ListNetworks(ctx)
		return err
	})
	return out, err
}

func (c *remoteClient) CreateNetwork(ctx context.Context, network *model.Resource) error {
	if err := network.Validate(); err != nil {
		return err
	}
	return c.CreateBatch(ctx, network.ID, model.ResourceTypeNetwork, []*model.Resource{network})
}

func (c *remoteClient) GetNetwork(ctx context.Context, networkID string) (*model.Resource, bool, error) {
	return c.GetResource(ctx, networkID, model.ResourceTypeNetwork, networkID)
}

func (c *remoteClient) UpdateNetwork(ctx context.Context, network *model.Resource) error {
	if err := network.Validate(); err != nil {
		return err
	}
	return c.UpdateResource(ctx, network.ID, network)
}

func (c *remoteClient) DeleteNetwork(ctx context.Context, networkID string) error {
	return c.do(ctx, model.ResourceTypeNetwork, "delete", networkID, func(ctx context.Context) error {
		return c.gw.DeleteNetwork(ctx, networkID)
	})
}

func (c *remoteClient) CreateResources(ctx context.Context, networkID string, rs ...*model.Resource) error {
	batches, err := groupByType(rs)
	if err != nil {
		return err
	}
	for _, t := range model.FlushOrder {
		if batch := batches[t]; len(batch) > 0 {
			if err := c.CreateBatch(ctx, networkID, t, batch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *remoteClient) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	var (
		out   *model.Resource
		found bool
	)
	err := c.do(ctx, t, "get", networkID, func(ctx context.Context) error {
		var err error
		out, found, err = c.gw.GetResource(ctx, networkID, t, id)
		return err
	})
	return out, found, err
}

func (c *remoteClient) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	var out []*model.Resource
	err := c.do(ctx, t, "get_container", networkID, func(ctx context.Context) error {
		var err error
		out, err = c.gw.GetContainerResources(ctx, networkID, t, containerID)
		return err
	})
	return out, err
}

func (c *remoteClient) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	var out []*model.Resource
	err := c.do(ctx, t, "get_all", networkID, func(ctx context.Context) error {
		var err error
		out, err = c.gw.GetAllResources(ctx, networkID, t)
		return err
	})
	return out, err
}

func (c *remoteClient) UpdateResource(ctx context.Context, networkID string, r *model.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return c.UpdateBatch(ctx, networkID, r.Type, []*model.Resource{r})
}

func (c *remoteClient) RemoveResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	return c.DeleteResource(ctx, networkID, t, id)
}

func (c *remoteClient) CountResources(ctx context.Context, networkID string, t model.ResourceType) (int, error) {
	rs, err := c.GetAllResources(ctx, networkID, t)
	return len(rs), err
}

// Flush is a no-op: nothing is buffered at this layer.
func (c *remoteClient) Flush(context.Context) error { return nil }

//
// ---------- BatchWriter ----------
//

// CreateBatch sends one create call. A transport failure is retried once;
// a second failure is returned as a fatal *gateway.StoreError.
func (c *remoteClient) CreateBatch(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	attempt := 0
	op := func() error {
		attempt++
		return c.do(ctx, t, "create", networkID, func(ctx context.Context) error {
			err := c.gw.CreateResources(ctx, networkID, t, rs)
			if err != nil && !gateway.IsTransport(err) {
				return backoff.Permanent(err)
			}
			return err
		})
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn(ctx, "create failed, retrying once",
			logging.String("network_id", networkID),
			logging.String("type", t.String()),
			logging.Duration("wait_ms", wait),
			logging.Err(err),
		)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 1), ctx)

	err := backoff.RetryNotify(op, policy, notify)
	if err == nil {
		c.metrics.ObserveFlushBatch(t, "create", len(rs))
		return nil
	}
	if gateway.IsTransport(err) {
		return &gateway.StoreError{
			Type: t,
			Op:   "create",
			Code: codes.Unavailable,
			Err:  fmt.Errorf("gave up after %d attempts: %v", attempt, err),
		}
	}
	return err
}

func (c *remoteClient) UpdateBatch(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	err := c.do(ctx, t, "update", networkID, func(ctx context.Context) error {
		return c.gw.UpdateResources(ctx, networkID, t, rs)
	})
	if err == nil {
		c.metrics.ObserveFlushBatch(t, "update", len(rs))
	}
	return err
}

func (c *remoteClient) DeleteResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	return c.do(ctx, t, "delete", networkID, func(ctx context.Context) error {
		return c.gw.DeleteResource(ctx, networkID, t, id)
	})
}

// do runs one gateway call inside a span and records its outcome.
func (c *remoteClient) do(ctx context.Context, t model.ResourceType, op, networkID string, call func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "netstore."+op, trace.WithAttributes(
		attribute.String("netstore.resource_type", t.String()),
		attribute.String("netstore.network_id", networkID),
	))
	defer span.End()

	start := time.Now()
	err := call(ctx)
	elapsed := time.Since(start)
	c.metrics.ObserveRemoteCall(t, op, err, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		c.log.Debug(ctx, "remote call failed",
			logging.String("op", op),
			logging.String("type", t.String()),
			logging.String("network_id", networkID),
			logging.Duration("elapsed_ms", elapsed),
			logging.Err(err),
		)
	}
	return err
}
