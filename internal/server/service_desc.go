package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// InvoiceServiceName is the fully qualified gRPC service name.
const InvoiceServiceName = "invoice.v1.InvoiceService"

const (
	methodProcessText  = "/" + InvoiceServiceName + "/ProcessText"
	methodProcessFile  = "/" + InvoiceServiceName + "/ProcessFile"
	methodGetInvoice   = "/" + InvoiceServiceName + "/GetInvoice"
	methodListInvoices = "/" + InvoiceServiceName + "/ListInvoices"
)

// InvoiceServiceServer is the server API for invoice.v1.InvoiceService.
// Requests and responses are google.protobuf.Struct documents.
type InvoiceServiceServer interface {
	ProcessText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetInvoice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListInvoices(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterInvoiceServiceServer(s grpc.ServiceRegistrar, srv InvoiceServiceServer) {
	s.RegisterService(&InvoiceServiceDesc, srv)
}

func unaryHandler(
	fullMethod string,
	call func(InvoiceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InvoiceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InvoiceServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InvoiceServiceDesc is the grpc.ServiceDesc for invoice.v1.InvoiceService.
var InvoiceServiceDesc = grpc.ServiceDesc{
	ServiceName: InvoiceServiceName,
	HandlerType: (*InvoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessText", Handler: unaryHandler(methodProcessText, InvoiceServiceServer.ProcessText)},
		{MethodName: "ProcessFile", Handler: unaryHandler(methodProcessFile, InvoiceServiceServer.ProcessFile)},
		{MethodName: "GetInvoice", Handler: unaryHandler(methodGetInvoice, InvoiceServiceServer.GetInvoice)},
		{MethodName: "ListInvoices", Handler: unaryHandler(methodListInvoices, InvoiceServiceServer.ListInvoices)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoice/v1/invoice.proto",
}

// InvoiceServiceClient is the client API for invoice.v1.InvoiceService.
type InvoiceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInvoiceServiceClient(cc grpc.ClientConnInterface) *InvoiceServiceClient {
	return &InvoiceServiceClient{cc: cc}
}

func (c *InvoiceServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InvoiceServiceClient) ProcessText(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodProcessText, in, opts...)
}

func (c *InvoiceServiceClient) ProcessFile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodProcessFile, in, opts...)
}

func (c *InvoiceServiceClient) GetInvoice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetInvoice, in, opts...)
}

func (c *InvoiceServiceClient) ListInvoices(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListInvoices, in, opts...)
}
