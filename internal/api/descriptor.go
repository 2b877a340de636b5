package api

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	availabilityServiceName = "museum.availability.v1.AvailabilityService"
	availabilityProtoFile   = "museum/availability/v1/availability.proto"

	listVenuesMethod = "/" + availabilityServiceName + "/ListVenues"
	getSlotsMethod   = "/" + availabilityServiceName + "/GetSlots"
)

// AvailabilityServer is the read-only catalog service. Requests and
// responses travel as google.protobuf.Struct.
type AvailabilityServer interface {
	ListVenues(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListVenues", Handler: listVenuesHandler},
		{MethodName: "GetSlots", Handler: getSlotsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: availabilityProtoFile,
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

func listVenuesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).ListVenues(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listVenuesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).ListVenues(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).GetSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSlotsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).GetSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AvailabilityClient calls the service over an existing connection.
type AvailabilityClient struct {
	cc grpc.ClientConnInterface
}

func NewAvailabilityClient(cc grpc.ClientConnInterface) *AvailabilityClient {
	return &AvailabilityClient{cc: cc}
}

func (c *AvailabilityClient) ListVenues(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listVenuesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AvailabilityClient) GetSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getSlotsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	descriptorOnce sync.Once
	descriptorErr  error
)

// registerAvailabilityFile makes the service visible to server reflection.
func registerAvailabilityFile() error {
	descriptorOnce.Do(func() {
		descriptorErr = buildAvailabilityFile()
	})
	return descriptorErr
}

func buildAvailabilityFile() error {
	if _, err := protoregistry.GlobalFiles.FindFileByPath(availabilityProtoFile); err == nil {
		return nil
	}

	structType := ".google.protobuf.Struct"
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(availabilityProtoFile),
		Package:    proto.String("museum.availability.v1"),
		Dependency: []string{structpb.File_google_protobuf_struct_proto.Path()},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("AvailabilityService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				{Name: proto.String("ListVenues"), InputType: proto.String(structType), OutputType: proto.String(structType)},
				{Name: proto.String("GetSlots"), InputType: proto.String(structType), OutputType: proto.String(structType)},
			},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return fmt.Errorf("build availability descriptor: %w", err)
	}
	return protoregistry.GlobalFiles.RegisterFile(fd)
}
