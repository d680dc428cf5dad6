package dewgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const serviceName = "blockberries.dewberry.v1.PayloadService"

// PayloadServiceServer is the server-side interface for the payload
// inspection service.
type PayloadServiceServer interface {
	// Inspect diagnoses a payload and returns its structural stats.
	Inspect(context.Context, *PayloadRequest) (*InspectResponse, error)
	// Canonicalize rewrites a payload to minimal widths.
	Canonicalize(context.Context, *PayloadRequest) (*CanonicalizeResponse, error)
	// Check reports whether a payload is structurally valid.
	Check(context.Context, *PayloadRequest) (*CheckResponse, error)
}

// RegisterPayloadServiceServer registers srv on a gRPC server.
func RegisterPayloadServiceServer(s *grpc.Server, srv PayloadServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

func handlerInspect(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(PayloadRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(PayloadServiceServer).Inspect(ctx, req)
}

func handlerCanonicalize(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(PayloadRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(PayloadServiceServer).Canonicalize(ctx, req)
}

func handlerCheck(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(PayloadRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(PayloadServiceServer).Check(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for PayloadService.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PayloadServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Inspect", Handler: handlerInspect},
		{MethodName: "Canonicalize", Handler: handlerCanonicalize},
		{MethodName: "Check", Handler: handlerCheck},
	},
	Metadata: "blockberries.dewberry.v1/service.dew",
}
