package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/emprendyup/ms-go-reconciler/app/service"
	"github.com/emprendyup/ms-go-reconciler/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const variantServiceName = "reconciler.v1.VariantService"

// VariantServiceServer exchanges google.protobuf.Struct messages whose
// fields follow the JSON shapes of the HTTP internal API.
type VariantServiceServer interface {
	Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var VariantServiceDesc = grpc.ServiceDesc{
	ServiceName: variantServiceName,
	HandlerType: (*VariantServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: variantResolveHandler},
		{MethodName: "Validate", Handler: variantValidateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reconciler/v1/variant.proto",
}

func RegisterVariantServiceServer(registrar grpc.ServiceRegistrar, srv VariantServiceServer) {
	registrar.RegisterService(&VariantServiceDesc, srv)
}

type Server struct {
	variantService *service.VariantService
}

func NewServer(variantService *service.VariantService) *Server {
	return &Server{variantService: variantService}
}

func (s *Server) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.ResolveVariantRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}

	resp, err := s.variantService.Resolve(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		loggerWithContext(ctx).WithError(err).Error("Resolve variant failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return toStruct(resp)
}

func (s *Server) Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.ValidateVariantsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}

	if err := s.variantService.Validate(&req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVariantCombination):
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		default:
			loggerWithContext(ctx).WithError(err).Error("Validate variants failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return toStruct(&types.ValidateVariantsResponse{Valid: true})
}

func fromStruct(in *structpb.Struct, out interface{}) error {
	if in == nil {
		return errors.New("empty request")
	}
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func toStruct(value interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func variantResolveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VariantServiceServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + variantServiceName + "/Resolve"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VariantServiceServer).Resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func variantValidateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VariantServiceServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + variantServiceName + "/Validate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VariantServiceServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
