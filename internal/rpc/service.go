// Package rpc defines the RecordStore gRPC service shared by the remote
// store client and the server.
//
// Every request and response is a google.protobuf.Struct; the field layout
// of each message is defined by the encode/decode helpers in this package.
// The service descriptor is written by hand so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "taskseal.v1.RecordStore"

const (
	MethodPing          = "Ping"
	MethodListRecords   = "ListRecords"
	MethodGetRecord     = "GetRecord"
	MethodCreateRecord  = "CreateRecord"
	MethodPatchRecord   = "PatchRecord"
	MethodSetDone       = "SetDone"
	MethodDeleteRecord  = "DeleteRecord"
	MethodGetSettings   = "GetSettings"
	MethodSetSettings   = "SetSettings"
	MethodClearSettings = "ClearSettings"
)

// FullMethod returns the gRPC path of a RecordStore method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// RecordStoreServer is the server API for the RecordStore service.
type RecordStoreServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PatchRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDone(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(RecordStoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(RecordStoreServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for the RecordStore service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, RecordStoreServer.Ping),
		unary(MethodListRecords, RecordStoreServer.ListRecords),
		unary(MethodGetRecord, RecordStoreServer.GetRecord),
		unary(MethodCreateRecord, RecordStoreServer.CreateRecord),
		unary(MethodPatchRecord, RecordStoreServer.PatchRecord),
		unary(MethodSetDone, RecordStoreServer.SetDone),
		unary(MethodDeleteRecord, RecordStoreServer.DeleteRecord),
		unary(MethodGetSettings, RecordStoreServer.GetSettings),
		unary(MethodSetSettings, RecordStoreServer.SetSettings),
		unary(MethodClearSettings, RecordStoreServer.ClearSettings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskseal/v1/record_store",
}

// RegisterRecordStoreServer registers srv with s.
func RegisterRecordStoreServer(s grpc.ServiceRegistrar, srv RecordStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// RecordStoreClient invokes RecordStore methods on a connection.
type RecordStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordStoreClient(cc grpc.ClientConnInterface) *RecordStoreClient {
	return &RecordStoreClient{cc: cc}
}

// Call invokes method with in and returns the response message. A nil in is
// sent as an empty message.
func (c *RecordStoreClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
