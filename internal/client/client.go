// Package client is the data-access layer applications use to read and
// write a network held in the remote store. It buffers writes until Flush
// and, depending on the preloading strategy, caches what it reads.
//
// A client is not safe for concurrent use. Callers serialize access.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

// ErrIllegalState signals a broken invariant: an unknown network id or a
// write that contradicts the buffered state. It is never retried.
var ErrIllegalState = errors.New("illegal state")

// NetworkStoreClient is the per-network, per-type resource API.
type NetworkStoreClient interface {
	ListNetworks(ctx context.Context) ([]gateway.NetworkInfo, error)
	CreateNetwork(ctx context.Context, network *model.Resource) error
	GetNetwork(ctx context.Context, networkID string) (*model.Resource, bool, error)
	UpdateNetwork(ctx context.Context, network *model.Resource) error
	DeleteNetwork(ctx context.Context, networkID string) error

	CreateResources(ctx context.Context, networkID string, rs ...*model.Resource) error
	GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error)
	GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error)
	GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error)
	UpdateResource(ctx context.Context, networkID string, r *model.Resource) error
	RemoveResource(ctx context.Context, networkID string, t model.ResourceType, id string) error
	CountResources(ctx context.Context, networkID string, t model.ResourceType) (int, error)

	// Flush sends every buffered create, update and removal to the store.
	Flush(ctx context.Context) error
}

// Strategy selects how much of a network the client reads ahead.
type Strategy string

const (
	// StrategyNone buffers writes but caches nothing: every read reaches
	// the store unless it concerns a locally written resource.
	StrategyNone Strategy = "none"
	// StrategyLazy caches ids and containers as they are requested.
	StrategyLazy Strategy = "lazy"
	// StrategyCollection loads a whole type the first time any resource of
	// that type is touched.
	StrategyCollection Strategy = "collection"
)

// ParseStrategy accepts the strategy names case-insensitively. "eager" is an
// alias of "collection".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lazy":
		return StrategyLazy, nil
	case "none":
		return StrategyNone, nil
	case "collection", "eager":
		return StrategyCollection, nil
	default:
		return "", fmt.Errorf("unknown preloading strategy %q", s)
	}
}

// Metrics receives client-side measurements. observability.ClientCollector
// implements it.
type Metrics interface {
	ObserveRemoteCall(t model.ResourceType, op string, err error, d time.Duration)
	ObserveCacheLookup(t model.ResourceType, hit bool)
	ObserveFlushBatch(t model.ResourceType, op string, size int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRemoteCall(model.ResourceType, string, error, time.Duration) {}
func (noopMetrics) ObserveCacheLookup(model.ResourceType, bool)                      {}
func (noopMetrics) ObserveFlushBatch(model.ResourceType, string, int)                {}

type options struct {
	log        logging.Logger
	metrics    Metrics
	retryDelay time.Duration
}

// Option configures a client.
type Option func(*options)

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRetryDelay sets the pause before the single create retry.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

const defaultRetryDelay = 200 * time.Millisecond

// New builds the client for strategy on top of gw. The strategy is fixed
// for the lifetime of the returned client.
func New(strategy Strategy, gw gateway.Gateway, opts ...Option) (NetworkStoreClient, error) {
	if gw == nil {
		return nil, fmt.Errorf("client: gateway is nil")
	}
	o := options{
		log:        logging.Noop(),
		metrics:    noopMetrics{},
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.log = o.log.With(logging.String("strategy", string(strategy)))

	remote := newRemoteClient(gw, o)
	buffered := newBufferedClient(remote, o)
	switch strategy {
	case StrategyNone:
		return buffered, nil
	case StrategyLazy:
		return newCachedClient(buffered, o), nil
	case StrategyCollection:
		return newPreloadingClient(newCachedClient(buffered, o)), nil
	default:
		return nil, fmt.Errorf("client: unknown strategy %q", strategy)
	}
}

// groupByType splits rs into per-type batches, keeping input order inside
// each batch, and validates every resource.
func groupByType(rs []*model.Resource) (map[model.ResourceType][]*model.Resource, error) {
	out := make(map[model.ResourceType][]*model.Resource)
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		out[r.Type] = append(out[r.Type], r)
	}
	return out, nil
}
