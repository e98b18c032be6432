package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"labyrinth-server/leaderboard"
)

const ServiceName = "labyrinth.v1.Leaderboard"

// LeaderboardServer is the gRPC surface of the score board. Messages are generic
// structs: scores are {"name": string, "time": number}.
type LeaderboardServer interface {
	TopScores(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SubmitScore(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// LeaderboardService implements LeaderboardServer over a Board.
type LeaderboardService struct {
	board *leaderboard.Board
}

func NewLeaderboardService(board *leaderboard.Board) *LeaderboardService {
	return &LeaderboardService{board: board}
}

// TopScores returns {"scores": [...]} fastest first.
func (s *LeaderboardService) TopScores(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	top := s.board.Top()
	scores := make([]interface{}, len(top))
	for i, e := range top {
		scores[i] = map[string]interface{}{"name": e.Name, "time": e.Time}
	}
	out, err := structpb.NewStruct(map[string]interface{}{"scores": scores})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// SubmitScore records {"name", "time"} and returns {"rank"}; rank 0 missed the board.
func (s *LeaderboardService) SubmitScore(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	tv, ok := fields["time"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "time is required")
	}
	if _, isNumber := tv.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return nil, status.Error(codes.InvalidArgument, "time must be a number")
	}

	rank, err := s.board.Insert(leaderboard.Entry{
		Name: fields["name"].GetStringValue(),
		Time: tv.GetNumberValue(),
	})
	if errors.Is(err, leaderboard.ErrInvalidEntry) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, "could not save score")
	}
	return structpb.NewStruct(map[string]interface{}{"rank": rank})
}

func topScoresHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LeaderboardServer).TopScores(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/TopScores"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LeaderboardServer).TopScores(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func submitScoreHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LeaderboardServer).SubmitScore(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SubmitScore"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LeaderboardServer).SubmitScore(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// LeaderboardServiceDesc describes the service without generated stubs.
var LeaderboardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LeaderboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TopScores", Handler: topScoresHandler},
		{MethodName: "SubmitScore", Handler: submitScoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "labyrinth/v1/leaderboard.proto",
}

// NewServer returns a gRPC server with the leaderboard and the standard health service.
// The returned health server lets the caller flip to NOT_SERVING on shutdown.
func NewServer(board *leaderboard.Board, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	s.RegisterService(&LeaderboardServiceDesc, NewLeaderboardService(board))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
