package gateway

import (
	"context"
	"strings"

	"github.com/signalsfoundry/netstore/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const tracerName = "github.com/signalsfoundry/netstore/internal/gateway"

// TracingUnaryServerInterceptor names the server span after the store method
// and tags it with the network and resource type of the request. It starts
// its own span when no stats handler created one.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		method := info.FullMethod
		if i := strings.LastIndex(method, "/"); i >= 0 {
			method = method[i+1:]
		}
		name := "Store/" + method

		span := trace.SpanFromContext(ctx)
		created := false
		if !span.SpanContext().IsValid() {
			ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			created = true
		} else {
			span.SetName(name)
		}

		span.SetAttributes(requestAttributes(ctx, info.FullMethod, method, req)...)

		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
		}
		if created {
			span.End()
		}
		return resp, err
	}
}

func requestAttributes(ctx context.Context, fullMethod, method string, req any) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", StoreServiceName),
		attribute.String("rpc.method", method),
		attribute.String("rpc.full_method", strings.TrimPrefix(fullMethod, "/")),
	}
	if s, ok := req.(*structpb.Struct); ok && s != nil {
		if v := s.GetFields()[fieldNetworkID].GetStringValue(); v != "" {
			attrs = append(attrs, attribute.String("netstore.network_id", v))
		}
		if v := s.GetFields()[fieldType].GetStringValue(); v != "" {
			attrs = append(attrs, attribute.String("netstore.resource_type", v))
		}
	}
	if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
		attrs = append(attrs, attribute.String("request_id", reqID))
	}
	return attrs
}
