package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"labyrinth-server/leaderboard"
)

func dial(t *testing.T, board *leaderboard.Board) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s, _ := NewServer(board)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func submit(ctx context.Context, conn *grpc.ClientConn, fields map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+ServiceName+"/SubmitScore", req, out)
	return out, err
}

func TestHealthServing(t *testing.T) {
	conn := dial(t, leaderboard.New(10))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", resp.GetStatus())
	}
}

func TestSubmitAndTopScores(t *testing.T) {
	conn := dial(t, leaderboard.New(10))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, s := range []map[string]interface{}{
		{"name": "A", "time": 50.0},
		{"name": "B", "time": 30.0},
	} {
		if _, err := submit(ctx, conn, s); err != nil {
			t.Fatal(err)
		}
	}
	out, err := submit(ctx, conn, map[string]interface{}{"name": "C", "time": 40.0})
	if err != nil {
		t.Fatal(err)
	}
	if rank := out.GetFields()["rank"].GetNumberValue(); rank != 2 {
		t.Errorf("Expected rank 2, got %v", rank)
	}

	top := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+ServiceName+"/TopScores", &emptypb.Empty{}, top); err != nil {
		t.Fatal(err)
	}
	scores := top.GetFields()["scores"].GetListValue().GetValues()
	var names []string
	for _, v := range scores {
		names = append(names, v.GetStructValue().GetFields()["name"].GetStringValue())
	}
	if len(names) != 3 || names[0] != "B" || names[1] != "C" || names[2] != "A" {
		t.Errorf("Expected B,C,A, got %v", names)
	}
}

func TestSubmitScoreInvalidArgument(t *testing.T) {
	conn := dial(t, leaderboard.New(10))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []map[string]interface{}{
		{"name": "A"},
		{"name": "A", "time": "fast"},
		{"name": "A", "time": -3.0},
	}
	for _, fields := range tests {
		_, err := submit(ctx, conn, fields)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%v: expected InvalidArgument, got %v", fields, err)
		}
	}
}
