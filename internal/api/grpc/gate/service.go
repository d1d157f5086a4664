package gate

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "gate.v1.GateService"

	// OpenMethod is the full name of the Open RPC.
	OpenMethod = "/" + ServiceName + "/Open"
	// CloseMethod is the full name of the Close RPC.
	CloseMethod = "/" + ServiceName + "/Close"
	// GetStatusMethod is the full name of the GetStatus RPC.
	GetStatusMethod = "/" + ServiceName + "/GetStatus"
	// ClearAlertMethod is the full name of the ClearAlert RPC.
	ClearAlertMethod = "/" + ServiceName + "/ClearAlert"
)

// GateServiceServer is the server API of GateService.
type GateServiceServer interface {
	Open(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Close(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	ClearAlert(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// GateServiceDesc describes GateService for grpc.Server registration.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var GateServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Open", Handler: unaryHandler(OpenMethod, GateServiceServer.Open)},
		{MethodName: "Close", Handler: unaryHandler(CloseMethod, GateServiceServer.Close)},
		{MethodName: "GetStatus", Handler: unaryHandler(GetStatusMethod, GateServiceServer.GetStatus)},
		{MethodName: "ClearAlert", Handler: unaryHandler(ClearAlertMethod, GateServiceServer.ClearAlert)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gate/v1/gate.proto",
}

// RegisterGateServiceServer registers srv on the registrar.
func RegisterGateServiceServer(s grpc.ServiceRegistrar, srv GateServiceServer) {
	s.RegisterService(&GateServiceDesc, srv)
}

type unaryCall func(GateServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

// unaryHandler decodes the request and runs it through the interceptor chain.
func unaryHandler(
	fullMethod string,
	call unaryCall,
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(GateServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			empty, _ := req.(*emptypb.Empty)

			return call(server, ctx, empty)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// GateServiceClient is the client API of GateService.
type GateServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGateServiceClient creates a client over the connection.
func NewGateServiceClient(cc grpc.ClientConnInterface) *GateServiceClient {
	return &GateServiceClient{cc: cc}
}

// Open requests the barrier to open.
func (c *GateServiceClient) Open(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, OpenMethod, opts...)
}

// Close requests the barrier to close.
func (c *GateServiceClient) Close(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CloseMethod, opts...)
}

// GetStatus returns the status document.
func (c *GateServiceClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetStatusMethod, opts...)
}

// ClearAlert acknowledges an active alert.
func (c *GateServiceClient) ClearAlert(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ClearAlertMethod, opts...)
}

func (c *GateServiceClient) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
