package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// StoreServiceName is the fully qualified gRPC service name of the store.
const StoreServiceName = "netstore.v1.NetworkStore"

// RPC method names.
const (
	MethodListNetworks          = "ListNetworks"
	MethodCreateResources       = "CreateResources"
	MethodGetResource           = "GetResource"
	MethodGetContainerResources = "GetContainerResources"
	MethodGetAllResources       = "GetAllResources"
	MethodUpdateResources       = "UpdateResources"
	MethodDeleteResource        = "DeleteResource"
	MethodDeleteNetwork         = "DeleteNetwork"
)

// FullMethod returns the "/service/method" path of a store RPC.
func FullMethod(method string) string {
	return "/" + StoreServiceName + "/" + method
}

// StoreServer is the server side of the store service. Every RPC carries a
// structpb.Struct in both directions.
type StoreServer interface {
	ListNetworks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateResources(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetContainerResources(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAllResources(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateResources(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteResource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteNetwork(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterStoreServer attaches srv to a gRPC server.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&storeServiceDesc, srv)
}

type storeCall func(StoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var storeServiceDesc = grpc.ServiceDesc{
	ServiceName: StoreServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodListNetworks, StoreServer.ListNetworks),
		unaryMethod(MethodCreateResources, StoreServer.CreateResources),
		unaryMethod(MethodGetResource, StoreServer.GetResource),
		unaryMethod(MethodGetContainerResources, StoreServer.GetContainerResources),
		unaryMethod(MethodGetAllResources, StoreServer.GetAllResources),
		unaryMethod(MethodUpdateResources, StoreServer.UpdateResources),
		unaryMethod(MethodDeleteResource, StoreServer.DeleteResource),
		unaryMethod(MethodDeleteNetwork, StoreServer.DeleteNetwork),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netstore/v1/store.proto",
}

func unaryMethod(name string, call storeCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StoreServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
