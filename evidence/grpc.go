package evidence

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The wire service speaks protobuf well-known wrapper types only
// (bytes in, CID string out), so no .proto compilation step exists in
// this repo. The service descriptor below is the single source of
// truth for method names.

const serviceName = "hap.evidence.v1.Evidence"

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

// EvidenceServer is the server side of the evidence service.
type EvidenceServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedEvidenceServer can be embedded for forward compatibility.
type UnimplementedEvidenceServer struct{}

func (UnimplementedEvidenceServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedEvidenceServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedEvidenceServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// RegisterEvidenceServer registers the service on a gRPC server.
func RegisterEvidenceServer(s grpc.ServiceRegistrar, srv EvidenceServer) {
	s.RegisterService(&evidenceServiceDesc, srv)
}

// EvidenceClient is the client side of the evidence service.
type EvidenceClient interface {
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type evidenceClient struct{ cc grpc.ClientConnInterface }

// NewEvidenceClient returns a client bound to cc.
func NewEvidenceClient(cc grpc.ClientConnInterface) EvidenceClient { return &evidenceClient{cc: cc} }

func callUnary[Out any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Out, error) {
	out := new(Out)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *evidenceClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return callUnary[wrapperspb.StringValue](ctx, c.cc, "Put", in, opts)
}

func (c *evidenceClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return callUnary[wrapperspb.BytesValue](ctx, c.cc, "Get", in, opts)
}

func (c *evidenceClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return callUnary[wrapperspb.BoolValue](ctx, c.cc, "Has", in, opts)
}

// serveUnary builds one MethodDesc, threading the request through any
// registered interceptor before the typed server call.
func serveUnary[In any](name string, call func(EvidenceServer, context.Context, *In) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(In)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EvidenceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(EvidenceServer), ctx, req.(*In))
			})
		},
	}
}

var evidenceServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EvidenceServer)(nil),
	Methods: []grpc.MethodDesc{
		serveUnary("Put", func(s EvidenceServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
			return s.Put(ctx, in)
		}),
		serveUnary("Get", func(s EvidenceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
			return s.Get(ctx, in)
		}),
		serveUnary("Has", func(s EvidenceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
			return s.Has(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "evidence.proto",
}
