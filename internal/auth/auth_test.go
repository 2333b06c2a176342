package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestGetOperatorID(t *testing.T) {
	if got := GetOperatorID(context.Background()); got != "" {
		t.Errorf("anonymous = %q", got)
	}

	md := metadata.Pairs(OperatorIDHeader, "op-17")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	if got := GetOperatorID(ctx); got != "op-17" {
		t.Errorf("from metadata = %q", got)
	}

	ctx = WithOperatorID(ctx, "op-99")
	if got := GetOperatorID(ctx); got != "op-99" {
		t.Errorf("context value should win, got %q", got)
	}
}

func TestContextInterceptor(t *testing.T) {
	intercept := ContextInterceptor(logger.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: "/spaceflow.wms.v1.PalletService/Undo"}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(OperatorIDHeader, "op-3"))

	var seen string
	resp, err := intercept(ctx, "req", info, func(ctx context.Context, req any) (any, error) {
		seen = GetOperatorID(ctx)
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}
	if seen != "op-3" {
		t.Errorf("operator = %q", seen)
	}

	want := status.Error(codes.NotFound, "gone")
	_, err = intercept(ctx, "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v", err)
	}
}
