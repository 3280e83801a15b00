package advisor

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// AdvisorServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct with the same keys as the HTTP JSON bodies.
const AdvisorServiceName = "agronomy.v1.Advisor"

const (
	recommendMethod    = "/" + AdvisorServiceName + "/Recommend"
	predictYieldMethod = "/" + AdvisorServiceName + "/PredictYield"
)

type AdvisorServer interface {
	Recommend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	PredictYield(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var advisorServiceDesc = grpc.ServiceDesc{
	ServiceName: AdvisorServiceName,
	HandlerType: (*AdvisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recommend", Handler: recommendRPC},
		{MethodName: "PredictYield", Handler: predictYieldRPC},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agronomy/v1/advisor.proto",
}

func recommendRPC(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisorServer).Recommend(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recommendMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisorServer).Recommend(ctx, req.(*structpb.Struct))
	})
}

func predictYieldRPC(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisorServer).PredictYield(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictYieldMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisorServer).PredictYield(ctx, req.(*structpb.Struct))
	})
}

// RegisterAdvisor registers the advisor and the standard health service on s.
func RegisterAdvisor(s *grpc.Server, svc *Service) *health.Server {
	s.RegisterService(&advisorServiceDesc, &grpcHandler{svc: svc})
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(AdvisorServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

type grpcHandler struct {
	svc *Service
}

// recommendRequest is the Recommend payload: the irrigation input plus an
// optional line flow.
type recommendRequest struct {
	entities.IrrigationInput
	FlowLpm float64 `json:"flow_lpm,omitempty"`
}

func (h *grpcHandler) Recommend(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req recommendRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if req.FlowLpm < 0 {
		return nil, status.Error(codes.InvalidArgument, "flow_lpm must not be negative")
	}
	rec, err := h.svc.Recommend(req.IrrigationInput, req.FlowLpm)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(rec)
}

func (h *grpcHandler) PredictYield(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req entities.YieldPredictionInput
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	p, err := h.svc.PredictYield(req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(p)
}

func grpcError(err error) error {
	if errors.Is(err, agronomy.ErrInvalidInput) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, out any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// AdvisorClient calls a remote advisor.
type AdvisorClient struct {
	cc grpc.ClientConnInterface
}

func NewAdvisorClient(cc grpc.ClientConnInterface) *AdvisorClient {
	return &AdvisorClient{cc: cc}
}

func (c *AdvisorClient) Recommend(ctx context.Context, in entities.IrrigationInput, flowLpm float64) (entities.IrrigationRecommendation, error) {
	var out entities.IrrigationRecommendation
	err := c.invoke(ctx, recommendMethod, recommendRequest{IrrigationInput: in, FlowLpm: flowLpm}, &out)
	return out, err
}

func (c *AdvisorClient) PredictYield(ctx context.Context, in entities.YieldPredictionInput) (entities.YieldPrediction, error) {
	var out entities.YieldPrediction
	err := c.invoke(ctx, predictYieldMethod, in, &out)
	return out, err
}

func (c *AdvisorClient) invoke(ctx context.Context, method string, req, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, resp); err != nil {
		return err
	}
	return fromStruct(resp, out)
}
