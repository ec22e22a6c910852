package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ReferralServiceName is the fully qualified gRPC service name.
const ReferralServiceName = "membership.v1.ReferralService"

const (
	getAgentMethod    = "/" + ReferralServiceName + "/GetAgent"
	getDownlineMethod = "/" + ReferralServiceName + "/GetDownline"
)

// ReferralServiceServer is the server API for membership.v1.ReferralService.
// Requests carry the agent id as a StringValue; responses are Structs.
type ReferralServiceServer interface {
	GetAgent(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetDownline(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterReferralServiceServer registers srv on s.
func RegisterReferralServiceServer(s grpc.ServiceRegistrar, srv ReferralServiceServer) {
	s.RegisterService(&ReferralServiceDesc, srv)
}

// ReferralServiceDesc describes membership.v1.ReferralService.
var ReferralServiceDesc = grpc.ServiceDesc{
	ServiceName: ReferralServiceName,
	HandlerType: (*ReferralServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAgent", Handler: getAgentHandler},
		{MethodName: "GetDownline", Handler: getDownlineHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "membership/v1/referral.proto",
}

func getAgentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReferralServiceServer).GetAgent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getAgentMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReferralServiceServer).GetAgent(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getDownlineHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReferralServiceServer).GetDownline(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getDownlineMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReferralServiceServer).GetDownline(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ReferralClient calls membership.v1.ReferralService.
type ReferralClient struct {
	cc grpc.ClientConnInterface
}

func NewReferralClient(cc grpc.ClientConnInterface) *ReferralClient {
	return &ReferralClient{cc: cc}
}

func (c *ReferralClient) GetAgent(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getAgentMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReferralClient) GetDownline(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getDownlineMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
