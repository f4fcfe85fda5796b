package grpc

import (
	"context"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"

	"google.golang.org/grpc"
)

const serviceName = "transformer.v1.TransformerMonitor"

const (
	ListSummariesMethod        = "/" + serviceName + "/ListSummaries"
	GetTransformerDetailMethod = "/" + serviceName + "/GetTransformerDetail"
	RecordReadingMethod        = "/" + serviceName + "/RecordReading"
)

type ListSummariesRequest struct {
	Query string `json:"query,omitempty"`
	Sort  string `json:"sort,omitempty"`
	Order string `json:"order,omitempty"`
}

type ListSummariesResponse struct {
	Transformers []domain.SummaryRow `json:"transformers"`
}

type GetTransformerDetailRequest struct {
	ID        string `json:"id"`
	Window    string `json:"window,omitempty"`
	MaxPoints int32  `json:"maxPoints,omitempty"`
}

type GetTransformerDetailResponse struct {
	Detail *domain.TransformerDetail `json:"detail"`
}

// RecordReadingRequest одно измерение; timestamp в ISO-8601, пустой означает "сейчас"
type RecordReadingRequest struct {
	TransformerID string   `json:"transformerId"`
	Timestamp     string   `json:"timestamp,omitempty"`
	TempC         *float64 `json:"tempC"`
}

type RecordReadingResponse struct {
	Accepted bool `json:"accepted"`
}

// TransformerMonitorServer серверная часть сервиса transformer.v1.TransformerMonitor
type TransformerMonitorServer interface {
	ListSummaries(context.Context, *ListSummariesRequest) (*ListSummariesResponse, error)
	GetTransformerDetail(context.Context, *GetTransformerDetailRequest) (*GetTransformerDetailResponse, error)
	RecordReading(context.Context, *RecordReadingRequest) (*RecordReadingResponse, error)
}

func RegisterTransformerMonitorServer(s grpc.ServiceRegistrar, srv TransformerMonitorServer) {
	s.RegisterService(&transformerMonitorDesc, srv)
}

var transformerMonitorDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TransformerMonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSummaries", Handler: listSummariesHandler},
		{MethodName: "GetTransformerDetail", Handler: getTransformerDetailHandler},
		{MethodName: "RecordReading", Handler: recordReadingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transformer/v1/monitor.proto",
}

func listSummariesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListSummariesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformerMonitorServer).ListSummaries(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListSummariesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransformerMonitorServer).ListSummaries(ctx, req.(*ListSummariesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTransformerDetailHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTransformerDetailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformerMonitorServer).GetTransformerDetail(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetTransformerDetailMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransformerMonitorServer).GetTransformerDetail(ctx, req.(*GetTransformerDetailRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func recordReadingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecordReadingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformerMonitorServer).RecordReading(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecordReadingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransformerMonitorServer).RecordReading(ctx, req.(*RecordReadingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TransformerMonitorClient клиент сервиса; соединение должно использовать Codec
type TransformerMonitorClient struct {
	cc grpc.ClientConnInterface
}

func NewTransformerMonitorClient(cc grpc.ClientConnInterface) *TransformerMonitorClient {
	return &TransformerMonitorClient{cc: cc}
}

func (c *TransformerMonitorClient) ListSummaries(ctx context.Context, in *ListSummariesRequest, opts ...grpc.CallOption) (*ListSummariesResponse, error) {
	out := new(ListSummariesResponse)
	if err := c.cc.Invoke(ctx, ListSummariesMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TransformerMonitorClient) GetTransformerDetail(ctx context.Context, in *GetTransformerDetailRequest, opts ...grpc.CallOption) (*GetTransformerDetailResponse, error) {
	out := new(GetTransformerDetailResponse)
	if err := c.cc.Invoke(ctx, GetTransformerDetailMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TransformerMonitorClient) RecordReading(ctx context.Context, in *RecordReadingRequest, opts ...grpc.CallOption) (*RecordReadingResponse, error) {
	out := new(RecordReadingResponse)
	if err := c.cc.Invoke(ctx, RecordReadingMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
