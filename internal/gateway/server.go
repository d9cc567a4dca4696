package gateway

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/netstore/internal/logging"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server exposes a Gateway backend (usually a MemoryStore) over gRPC.
type Server struct {
	backend Gateway
	log     logging.Logger
}

// NewServer wraps backend. A nil logger falls back to a no-op logger.
func NewServer(backend Gateway, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{backend: backend, log: log}
}

var _ StoreServer = (*Server)(nil)

func (s *Server) ListNetworks(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	infos, err := s.backend.ListNetworks(ctx)
	if err != nil {
		return nil, s.fail(ctx, MethodListNetworks, err)
	}
	resp, err := networksResponse(infos)
	return resp, s.fail(ctx, MethodListNetworks, err)
}

func (s *Server) CreateResources(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeTyped(in)
	if err != nil {
		return nil, s.fail(ctx, MethodCreateResources, err)
	}
	if err := s.backend.CreateResources(ctx, req.NetworkID, req.Type, req.Resources); err != nil {
		return nil, s.fail(ctx, MethodCreateResources, err)
	}
	return &structpb.Struct{}, nil
}

func (s *Server) GetResource(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeTyped(in)
	if err != nil {
		return nil, s.fail(ctx, MethodGetResource, err)
	}
	r, found, err := s.backend.GetResource(ctx, req.NetworkID, req.Type, req.ID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetResource, err)
	}
	resp, err := resourceResponse(r, found)
	return resp, s.fail(ctx, MethodGetResource, err)
}

func (s *Server) GetContainerResources(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeTyped(in)
	if err != nil {
		return nil, s.fail(ctx, MethodGetContainerResources, err)
	}
	rs, err := s.backend.GetContainerResources(ctx, req.NetworkID, req.Type, req.ContainerID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetContainerResources, err)
	}
	resp, err := resourcesResponse(rs)
	return resp, s.fail(ctx, MethodGetContainerResources, err)
}

func (s *Server) GetAllResources(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeTyped(in)
	if err != nil {
		return nil, s.fail(ctx, MethodGetAllResources, err)
	}
	rs, err := s.backend.GetAllResources(ctx, req.NetworkID, req.Type)
	if err != nil {
		return nil, s.fail(ctx, MethodGetAllResources, err)
	}
	resp, err := resourcesResponse(rs)
	return resp, s.fail(ctx, MethodGetAllResources, err)
}

func (s *Server) UpdateResources(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeTyped(in)
	if err != nil {
		return nil, s.fail(ctx, MethodUpdateResources, err)
	}
	if err := s.backend.UpdateResources(ctx, req.NetworkID, req.Type, req.Resources); err != nil {
		return nil, s.fail(ctx, MethodUpdateResources, err)
	}
	return &structpb.Struct{}, nil
}

func (s *Server) DeleteResource(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeTyped(in)
	if err != nil {
		return nil, s.fail(ctx, MethodDeleteResource, err)
	}
	if err := s.backend.DeleteResource(ctx, req.NetworkID, req.Type, req.ID); err != nil {
		return nil, s.fail(ctx, MethodDeleteResource, err)
	}
	return &structpb.Struct{}, nil
}

func (s *Server) DeleteNetwork(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, s.fail(ctx, MethodDeleteNetwork, err)
	}
	if err := s.backend.DeleteNetwork(ctx, req.NetworkID); err != nil {
		return nil, s.fail(ctx, MethodDeleteNetwork, err)
	}
	return &structpb.Struct{}, nil
}

// fail logs err with the request-scoped logger and converts it to a status.
func (s *Server) fail(ctx context.Context, method string, err error) error {
	if err == nil {
		return nil
	}
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = s.log
	}
	log.Warn(ctx, "store request failed",
		logging.String("method", method),
		logging.Err(err),
	)
	return ToStatusError(err)
}

// decodeTyped decodes a request that must name a network and a type.
func decodeTyped(in *structpb.Struct) (request, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return req, err
	}
	if req.NetworkID == "" {
		return req, fmt.Errorf("%w: missing %s", ErrInvalidRequest, fieldNetworkID)
	}
	if !req.Type.Valid() {
		return req, fmt.Errorf("%w: missing or unknown %s", ErrInvalidRequest, fieldType)
	}
	for _, r := range req.Resources {
		if r.Type != req.Type {
			return req, fmt.Errorf("%w: %q is %s in a %s batch", ErrInvalidRequest, r.ID, r.Type, req.Type)
		}
	}
	return req, nil
}

