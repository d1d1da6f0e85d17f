package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const SettlementServiceName = "settlement.v1.SettlementService"

// SettlementServiceServer is the unary surface of the settlement service.
// Every message is a google.protobuf.Struct carrying the JSON DTO.
type SettlementServiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteManual(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQuote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LockQuote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRules(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetExecution(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListExecutions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(SettlementServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SettlementServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + SettlementServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SettlementServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var SettlementServiceDesc = grpc.ServiceDesc{
	ServiceName: SettlementServiceName,
	HandlerType: (*SettlementServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Evaluate", SettlementServiceServer.Evaluate),
		unaryHandler("Execute", SettlementServiceServer.Execute),
		unaryHandler("ExecuteManual", SettlementServiceServer.ExecuteManual),
		unaryHandler("GetQuote", SettlementServiceServer.GetQuote),
		unaryHandler("LockQuote", SettlementServiceServer.LockQuote),
		unaryHandler("CreateRule", SettlementServiceServer.CreateRule),
		unaryHandler("UpdateRule", SettlementServiceServer.UpdateRule),
		unaryHandler("DeleteRule", SettlementServiceServer.DeleteRule),
		unaryHandler("GetRule", SettlementServiceServer.GetRule),
		unaryHandler("ListRules", SettlementServiceServer.ListRules),
		unaryHandler("GetExecution", SettlementServiceServer.GetExecution),
		unaryHandler("ListExecutions", SettlementServiceServer.ListExecutions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/settlement/v1/settlement.proto",
}

func RegisterSettlementServiceServer(s grpc.ServiceRegistrar, srv SettlementServiceServer) {
	s.RegisterService(&SettlementServiceDesc, srv)
}

// SettlementServiceClient calls the service by method name.
type SettlementServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSettlementServiceClient(cc grpc.ClientConnInterface) *SettlementServiceClient {
	return &SettlementServiceClient{cc: cc}
}

func (c *SettlementServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+SettlementServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
