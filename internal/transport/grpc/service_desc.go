package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "vaxbook.v1.SchedulingService"

// SchedulingServiceServer is the server side of vaxbook.v1.SchedulingService, declared in
// proto/vaxbook/v1/scheduling.proto. Requests and responses are google.protobuf.Struct
// documents; field names are snake_case and timestamps are RFC 3339 strings.
type SchedulingServiceServer interface {
	RegisterPerson(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddVaccineLot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BookAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	FindAndBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListPersonAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCenterStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetVaccine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListVaccines(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetVaccineLot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListVaccineLots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv SchedulingServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterPerson", Handler: unaryHandler("RegisterPerson", SchedulingServiceServer.RegisterPerson)},
		{MethodName: "AddVaccineLot", Handler: unaryHandler("AddVaccineLot", SchedulingServiceServer.AddVaccineLot)},
		{MethodName: "BookAppointment", Handler: unaryHandler("BookAppointment", SchedulingServiceServer.BookAppointment)},
		{MethodName: "FindAndBook", Handler: unaryHandler("FindAndBook", SchedulingServiceServer.FindAndBook)},
		{MethodName: "CancelAppointment", Handler: unaryHandler("CancelAppointment", SchedulingServiceServer.CancelAppointment)},
		{MethodName: "ListPersonAppointments", Handler: unaryHandler("ListPersonAppointments", SchedulingServiceServer.ListPersonAppointments)},
		{MethodName: "GetCenterStock", Handler: unaryHandler("GetCenterStock", SchedulingServiceServer.GetCenterStock)},
		{MethodName: "GetVaccine", Handler: unaryHandler("GetVaccine", SchedulingServiceServer.GetVaccine)},
		{MethodName: "ListVaccines", Handler: unaryHandler("ListVaccines", SchedulingServiceServer.ListVaccines)},
		{MethodName: "GetVaccineLot", Handler: unaryHandler("GetVaccineLot", SchedulingServiceServer.GetVaccineLot)},
		{MethodName: "ListVaccineLots", Handler: unaryHandler("ListVaccineLots", SchedulingServiceServer.ListVaccineLots)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", SchedulingServiceServer.GetStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaxbook/v1/scheduling.proto",
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&SchedulingServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	method := fullMethod(name)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SchedulingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
