// Package sensorpb declares the netguard.v1.Sensor gRPC service. Messages are
// google.protobuf.Struct values, so no generated code is needed; the
// service descriptor and client below play the role protoc-gen-go-grpc
// output would.
package sensorpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "netguard.v1.Sensor"

// Full method names, as seen by interceptors.
const (
	MethodLogin    = "/" + ServiceName + "/Login"
	MethodPing     = "/" + ServiceName + "/Ping"
	MethodPredict  = "/" + ServiceName + "/Predict"
	MethodSimulate = "/" + ServiceName + "/Simulate"
)

// SensorServer is implemented by the server side of the service.
//
//	Login({username, password}) -> {access_token}
//	Ping({}) -> {status}
//	Predict({<feature>: <value>, ...}) -> {id, prediction, confidence, probabilities, timestamp, is_attack}
//	Simulate({count}) -> {samples: [...]}
type SensorServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Predict(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(SensorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, fn call) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(SensorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(SensorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes netguard.v1.Sensor for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SensorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unary(MethodLogin, SensorServer.Login)},
		{MethodName: "Ping", Handler: unary(MethodPing, SensorServer.Ping)},
		{MethodName: "Predict", Handler: unary(MethodPredict, SensorServer.Predict)},
		{MethodName: "Simulate", Handler: unary(MethodSimulate, SensorServer.Simulate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netguard/v1/sensor.proto",
}

func RegisterSensorServer(s grpc.ServiceRegistrar, srv SensorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// SensorClient is the client API for netguard.v1.Sensor.
type SensorClient interface {
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type sensorClient struct {
	cc grpc.ClientConnInterface
}

func NewSensorClient(cc grpc.ClientConnInterface) SensorClient {
	return &sensorClient{cc: cc}
}

func (c *sensorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensorClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodLogin, in, opts)
}

func (c *sensorClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPing, in, opts)
}

func (c *sensorClient) Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPredict, in, opts)
}

func (c *sensorClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSimulate, in, opts)
}
