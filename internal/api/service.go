// Package api exposes the client core over gRPC on the profile's Unix
// socket. Messages are google.protobuf.Struct so that the service needs no
// generated code; field names follow the backend's snake_case JSON.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "beazap.v1.Monitor"

// Method names.
const (
	MethodGetStatus         = "GetStatus"
	MethodListInstances     = "ListInstances"
	MethodSelectInstance    = "SelectInstance"
	MethodGetDashboard      = "GetDashboard"
	MethodListConversations = "ListConversations"
	MethodGetTimeline       = "GetTimeline"
	MethodSendText          = "SendText"
	MethodResolve           = "Resolve"
	MethodAssign            = "Assign"
	MethodAddNote           = "AddNote"
	MethodDeleteNote        = "DeleteNote"
	MethodSetSLAThreshold   = "SetSLAThreshold"
	MethodGetSLAAlerts      = "GetSLAAlerts"
	MethodWatchEvents       = "WatchEvents"
)

// MonitorServer is the server API for beazap.v1.Monitor.
type MonitorServer interface {
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListInstances(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectInstance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListConversations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Assign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetSLAThreshold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSLAAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(MonitorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MonitorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MonitorServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MonitorServer).WatchEvents(in, stream)
}

// MonitorServiceDesc describes beazap.v1.Monitor for grpc.Server.RegisterService.
var MonitorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetStatus, MonitorServer.GetStatus),
		unary(MethodListInstances, MonitorServer.ListInstances),
		unary(MethodSelectInstance, MonitorServer.SelectInstance),
		unary(MethodGetDashboard, MonitorServer.GetDashboard),
		unary(MethodListConversations, MonitorServer.ListConversations),
		unary(MethodGetTimeline, MonitorServer.GetTimeline),
		unary(MethodSendText, MonitorServer.SendText),
		unary(MethodResolve, MonitorServer.Resolve),
		unary(MethodAssign, MonitorServer.Assign),
		unary(MethodAddNote, MonitorServer.AddNote),
		unary(MethodDeleteNote, MonitorServer.DeleteNote),
		unary(MethodSetSLAThreshold, MonitorServer.SetSLAThreshold),
		unary(MethodGetSLAAlerts, MonitorServer.GetSLAAlerts),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "beazap/v1/monitor.proto",
}

// RegisterMonitorServer registers srv on s.
func RegisterMonitorServer(s grpc.ServiceRegistrar, srv MonitorServer) {
	s.RegisterService(&MonitorServiceDesc, srv)
}
