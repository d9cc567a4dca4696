package gateway

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCClient is a Gateway that talks to a remote netstore server.
type GRPCClient struct {
	conn grpc.ClientConnInterface
	log  logging.Logger
}

// NewGRPCClient wraps an established connection.
func NewGRPCClient(conn grpc.ClientConnInterface, log logging.Logger) *GRPCClient {
	if log == nil {
		log = logging.Noop()
	}
	return &GRPCClient{conn: conn, log: log}
}

// Dial opens a plaintext, trace-instrumented connection to target. Extra
// options are appended after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

var _ Gateway = (*GRPCClient)(nil)

func (c *GRPCClient) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	resp, err := c.call(ctx, MethodListNetworks, "", "list", request{})
	if err != nil {
		return nil, err
	}
	return networksFromResponse(resp), nil
}

func (c *GRPCClient) CreateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	_, err := c.call(ctx, MethodCreateResources, t, "create", request{NetworkID: networkID, Type: t, Resources: rs})
	return err
}

func (c *GRPCClient) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	resp, err := c.call(ctx, MethodGetResource, t, "get", request{NetworkID: networkID, Type: t, ID: id})
	if err != nil {
		return nil, false, err
	}
	fields := resp.GetFields()
	if !fields[fieldFound].GetBoolValue() {
		return nil, false, nil
	}
	r, err := resourceFromStruct(fields[fieldResource].GetStructValue())
	if err != nil {
		return nil, false, &StoreError{Type: t, Op: "get", Code: codes.Internal, Err: err}
	}
	return r, true, nil
}

func (c *GRPCClient) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	resp, err := c.call(ctx, MethodGetContainerResources, t, "get_container",
		request{NetworkID: networkID, Type: t, ContainerID: containerID})
	if err != nil {
		return nil, err
	}
	return c.decodeList(t, "get_container", resp)
}

func (c *GRPCClient) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	resp, err := c.call(ctx, MethodGetAllResources, t, "get_all", request{NetworkID: networkID, Type: t})
	if err != nil {
		return nil, err
	}
	return c.decodeList(t, "get_all", resp)
}

func (c *GRPCClient) UpdateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	_, err := c.call(ctx, MethodUpdateResources, t, "update", request{NetworkID: networkID, Type: t, Resources: rs})
	return err
}

func (c *GRPCClient) DeleteResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	_, err := c.call(ctx, MethodDeleteResource, t, "delete", request{NetworkID: networkID, Type: t, ID: id})
	return err
}

func (c *GRPCClient) DeleteNetwork(ctx context.Context, networkID string) error {
	_, err := c.call(ctx, MethodDeleteNetwork, model.ResourceTypeNetwork, "delete", request{NetworkID: networkID})
	return err
}

func (c *GRPCClient) call(ctx context.Context, method string, t model.ResourceType, op string, req request) (*structpb.Struct, error) {
	in, err := encodeRequest(req)
	if err != nil {
		return nil, &StoreError{Type: t, Op: op, Code: codes.Internal, Err: err}
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		c.log.Debug(ctx, "store call failed",
			logging.String("method", method),
			logging.String("network_id", req.NetworkID),
			logging.Err(err),
		)
		return nil, FromStatusError(t, op, err)
	}
	return out, nil
}

func (c *GRPCClient) decodeList(t model.ResourceType, op string, resp *structpb.Struct) ([]*model.Resource, error) {
	rs, err := resourcesFromList(resp.GetFields()[fieldResources].GetListValue())
	if err != nil {
		return nil, &StoreError{Type: t, Op: op, Code: codes.Internal, Err: err}
	}
	return rs, nil
}
