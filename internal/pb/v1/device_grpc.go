package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of DeviceService.
const (
	DeviceServiceName                      = "devicecore.v1.DeviceService"
	DeviceService_Call_FullMethodName      = "/devicecore.v1.DeviceService/Call"
	DeviceService_GetStatus_FullMethodName = "/devicecore.v1.DeviceService/GetStatus"
	DeviceService_Control_FullMethodName   = "/devicecore.v1.DeviceService/Control"
)

// DeviceServiceClient is the client API for DeviceService.
type DeviceServiceClient interface {
	// Call forwards one JSON-RPC tool message and returns its reply.
	Call(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// GetStatus returns the device state and the last known peripheral snapshot.
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Control simulates a button press or voice input: {action, text}.
	Control(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type deviceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDeviceServiceClient returns a client over cc.
func NewDeviceServiceClient(cc grpc.ClientConnInterface) DeviceServiceClient {
	return &deviceServiceClient{cc: cc}
}

func (c *deviceServiceClient) Call(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DeviceService_Call_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *deviceServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DeviceService_GetStatus_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *deviceServiceClient) Control(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, DeviceService_Control_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// DeviceServiceServer is the server API for DeviceService.
// Implementations must embed UnimplementedDeviceServiceServer.
type DeviceServiceServer interface {
	Call(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Control(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
	mustEmbedUnimplementedDeviceServiceServer()
}

// UnimplementedDeviceServiceServer answers every method with codes.Unimplemented.
type UnimplementedDeviceServiceServer struct{}

// Call implements DeviceServiceServer.
func (UnimplementedDeviceServiceServer) Call(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Call not implemented")
}

// GetStatus implements DeviceServiceServer.
func (UnimplementedDeviceServiceServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

// Control implements DeviceServiceServer.
func (UnimplementedDeviceServiceServer) Control(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Control not implemented")
}

func (UnimplementedDeviceServiceServer) mustEmbedUnimplementedDeviceServiceServer() {}

// RegisterDeviceServiceServer registers srv on s.
func RegisterDeviceServiceServer(s grpc.ServiceRegistrar, srv DeviceServiceServer) {
	s.RegisterService(&DeviceService_ServiceDesc, srv)
}

func _DeviceService_Call_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DeviceServiceServer).Call(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeviceService_Call_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceServiceServer).Call(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func _DeviceService_GetStatus_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DeviceServiceServer).GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeviceService_GetStatus_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceServiceServer).GetStatus(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func _DeviceService_Control_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DeviceServiceServer).Control(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeviceService_Control_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceServiceServer).Control(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

// DeviceService_ServiceDesc is the grpc.ServiceDesc for DeviceService.
//
//nolint:gochecknoglobals // Registered by value with grpc.Server.
var DeviceService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DeviceServiceName,
	HandlerType: (*DeviceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: _DeviceService_Call_Handler},
		{MethodName: "GetStatus", Handler: _DeviceService_GetStatus_Handler},
		{MethodName: "Control", Handler: _DeviceService_Control_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "devicecore/v1/device.proto",
}
