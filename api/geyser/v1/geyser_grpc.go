package geyserv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "geyser.v1.Geyser"

const (
	Geyser_Subscribe_FullMethodName          = "/geyser.v1.Geyser/Subscribe"
	Geyser_Ping_FullMethodName               = "/geyser.v1.Geyser/Ping"
	Geyser_GetLatestBlockhash_FullMethodName = "/geyser.v1.Geyser/GetLatestBlockhash"
	Geyser_GetBlockHeight_FullMethodName     = "/geyser.v1.Geyser/GetBlockHeight"
	Geyser_GetSlot_FullMethodName            = "/geyser.v1.Geyser/GetSlot"
	Geyser_IsBlockhashValid_FullMethodName   = "/geyser.v1.Geyser/IsBlockhashValid"
	Geyser_GetVersion_FullMethodName         = "/geyser.v1.Geyser/GetVersion"
)

type (
	Geyser_SubscribeServer = grpc.BidiStreamingServer[SubscribeRequest, SubscribeUpdate]
	Geyser_SubscribeClient = grpc.BidiStreamingClient[SubscribeRequest, SubscribeUpdate]
)

// GeyserClient is the client API for the Geyser service.
type GeyserClient interface {
	Subscribe(ctx context.Context, opts ...grpc.CallOption) (Geyser_SubscribeClient, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PongResponse, error)
	GetLatestBlockhash(ctx context.Context, in *GetLatestBlockhashRequest, opts ...grpc.CallOption) (*GetLatestBlockhashResponse, error)
	GetBlockHeight(ctx context.Context, in *GetBlockHeightRequest, opts ...grpc.CallOption) (*GetBlockHeightResponse, error)
	GetSlot(ctx context.Context, in *GetSlotRequest, opts ...grpc.CallOption) (*GetSlotResponse, error)
	IsBlockhashValid(ctx context.Context, in *IsBlockhashValidRequest, opts ...grpc.CallOption) (*IsBlockhashValidResponse, error)
	GetVersion(ctx context.Context, in *GetVersionRequest, opts ...grpc.CallOption) (*GetVersionResponse, error)
}

type geyserClient struct {
	cc grpc.ClientConnInterface
}

// NewGeyserClient returns a client that sends every call with the msgpack
// content subtype.
func NewGeyserClient(cc grpc.ClientConnInterface) GeyserClient {
	return &geyserClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *geyserClient) Subscribe(ctx context.Context, opts ...grpc.CallOption) (Geyser_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &Geyser_ServiceDesc.Streams[0], Geyser_Subscribe_FullMethodName, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[SubscribeRequest, SubscribeUpdate]{ClientStream: stream}, nil
}

func (c *geyserClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PongResponse, error) {
	out := new(PongResponse)
	if err := c.cc.Invoke(ctx, Geyser_Ping_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *geyserClient) GetLatestBlockhash(ctx context.Context, in *GetLatestBlockhashRequest, opts ...grpc.CallOption) (*GetLatestBlockhashResponse, error) {
	out := new(GetLatestBlockhashResponse)
	if err := c.cc.Invoke(ctx, Geyser_GetLatestBlockhash_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *geyserClient) GetBlockHeight(ctx context.Context, in *GetBlockHeightRequest, opts ...grpc.CallOption) (*GetBlockHeightResponse, error) {
	out := new(GetBlockHeightResponse)
	if err := c.cc.Invoke(ctx, Geyser_GetBlockHeight_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *geyserClient) GetSlot(ctx context.Context, in *GetSlotRequest, opts ...grpc.CallOption) (*GetSlotResponse, error) {
	out := new(GetSlotResponse)
	if err := c.cc.Invoke(ctx, Geyser_GetSlot_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *geyserClient) IsBlockhashValid(ctx context.Context, in *IsBlockhashValidRequest, opts ...grpc.CallOption) (*IsBlockhashValidResponse, error) {
	out := new(IsBlockhashValidResponse)
	if err := c.cc.Invoke(ctx, Geyser_IsBlockhashValid_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *geyserClient) GetVersion(ctx context.Context, in *GetVersionRequest, opts ...grpc.CallOption) (*GetVersionResponse, error) {
	out := new(GetVersionResponse)
	if err := c.cc.Invoke(ctx, Geyser_GetVersion_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// GeyserServer is the server API for the Geyser service. Implementations
// must embed UnimplementedGeyserServer.
type GeyserServer interface {
	Subscribe(Geyser_SubscribeServer) error
	Ping(context.Context, *PingRequest) (*PongResponse, error)
	GetLatestBlockhash(context.Context, *GetLatestBlockhashRequest) (*GetLatestBlockhashResponse, error)
	GetBlockHeight(context.Context, *GetBlockHeightRequest) (*GetBlockHeightResponse, error)
	GetSlot(context.Context, *GetSlotRequest) (*GetSlotResponse, error)
	IsBlockhashValid(context.Context, *IsBlockhashValidRequest) (*IsBlockhashValidResponse, error)
	GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error)
	mustEmbedUnimplementedGeyserServer()
}

type UnimplementedGeyserServer struct{}

func (UnimplementedGeyserServer) Subscribe(Geyser_SubscribeServer) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}
func (UnimplementedGeyserServer) Ping(context.Context, *PingRequest) (*PongResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedGeyserServer) GetLatestBlockhash(context.Context, *GetLatestBlockhashRequest) (*GetLatestBlockhashResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetLatestBlockhash not implemented")
}
func (UnimplementedGeyserServer) GetBlockHeight(context.Context, *GetBlockHeightRequest) (*GetBlockHeightResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBlockHeight not implemented")
}
func (UnimplementedGeyserServer) GetSlot(context.Context, *GetSlotRequest) (*GetSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSlot not implemented")
}
func (UnimplementedGeyserServer) IsBlockhashValid(context.Context, *IsBlockhashValidRequest) (*IsBlockhashValidResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IsBlockhashValid not implemented")
}
func (UnimplementedGeyserServer) GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetVersion not implemented")
}
func (UnimplementedGeyserServer) mustEmbedUnimplementedGeyserServer() {}

// RegisterGeyserServer registers srv on s.
func RegisterGeyserServer(s grpc.ServiceRegistrar, srv GeyserServer) {
	s.RegisterService(&Geyser_ServiceDesc, srv)
}

func _Geyser_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(GeyserServer).Subscribe(&grpc.GenericServerStream[SubscribeRequest, SubscribeUpdate]{ServerStream: stream})
}

// unaryHandler adapts a typed unary method to the descriptor signature.
func unaryHandler[Req, Res any](method string, call func(GeyserServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GeyserServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GeyserServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Geyser_ServiceDesc is the grpc.ServiceDesc for the Geyser service.
var Geyser_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GeyserServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(Geyser_Ping_FullMethodName, GeyserServer.Ping)},
		{MethodName: "GetLatestBlockhash", Handler: unaryHandler(Geyser_GetLatestBlockhash_FullMethodName, GeyserServer.GetLatestBlockhash)},
		{MethodName: "GetBlockHeight", Handler: unaryHandler(Geyser_GetBlockHeight_FullMethodName, GeyserServer.GetBlockHeight)},
		{MethodName: "GetSlot", Handler: unaryHandler(Geyser_GetSlot_FullMethodName, GeyserServer.GetSlot)},
		{MethodName: "IsBlockhashValid", Handler: unaryHandler(Geyser_IsBlockhashValid_FullMethodName, GeyserServer.IsBlockhashValid)},
		{MethodName: "GetVersion", Handler: unaryHandler(Geyser_GetVersion_FullMethodName, GeyserServer.GetVersion)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _Geyser_Subscribe_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "api/geyser/v1/geyser_grpc.go",
}
