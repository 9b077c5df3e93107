package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sway.admin.v1.Validation"

// Full method names, as seen by interceptors.
const (
	ValidateMethod    = "/" + ServiceName + "/Validate"
	ListSchemasMethod = "/" + ServiceName + "/ListSchemas"
)

// ValidationServer is the server API of the admin validation service.
// Messages are google.protobuf.Struct so no generated code is needed.
type ValidationServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSchemas(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterValidationServer registers srv on s.
func RegisterValidationServer(s grpc.ServiceRegistrar, srv ValidationServer) {
	s.RegisterService(&ValidationServiceDesc, srv)
}

// ValidationServiceDesc describes the service for grpc.Server.
var ValidationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValidationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "ListSchemas", Handler: listSchemasHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sway/admin/v1/validation",
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidationServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ValidationServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listSchemasHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidationServer).ListSchemas(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListSchemasMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ValidationServer).ListSchemas(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ValidationClient calls the admin validation service.
type ValidationClient struct {
	cc grpc.ClientConnInterface
}

// NewValidationClient creates a client over cc.
func NewValidationClient(cc grpc.ClientConnInterface) *ValidationClient {
	return &ValidationClient{cc: cc}
}

// Validate calls Validate.
func (c *ValidationClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSchemas calls ListSchemas.
func (c *ValidationClient) ListSchemas(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListSchemasMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
