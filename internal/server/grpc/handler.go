package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/server/traffic"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus converts a service error into a gRPC status. Token errors keep
// their sentinel text so clients can tell an expired token apart.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrPredictionFailed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrModelUnavailable):
		return status.Error(codes.Unavailable, common.ErrModelUnavailable.Error())
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(req *structpb.Struct, name string) string {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	username := stringField(req, "username")

	token, acc, err := s.sessions.IssueAccessToken(ctx, username, stringField(req, "password"))
	if err != nil {
		s.logger.Info(ctx, "sensor login failed", "username", username)
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"access_token": token,
		"username":     acc.UserName,
		"role":         string(acc.Role),
	})
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return structpb.NewStruct(map[string]any{"status": "OK"})

}

func (s *GRPCServer) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	actor, ok := principalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing principal")
	}

	res, err := s.detections.Predict(ctx, actor, req.AsMap())
	if err != nil {
		if st := toStatus(err); status.Code(st) == codes.Internal {
			s.logger.Error(ctx, "predict failed", "account_id", actor.ID, "error", err)
		}
		return nil, toStatus(err)
	}

	probabilities := make(map[string]any, len(res.Probabilities))
	for label, p := range res.Probabilities {
		probabilities[label] = p
	}

	out, err := structpb.NewStruct(map[string]any{
		"id":            res.ID,
		"prediction":    res.Prediction,
		"confidence":    res.Confidence,
		"probabilities": probabilities,
		"timestamp":     res.Timestamp.UTC().Format(time.RFC3339Nano),
		"is_attack":     res.IsAttack,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	n := traffic.DefaultSamples
	if v, ok := req.GetFields()["count"]; ok {
		n = int(v.GetNumberValue())
	}

	samples := s.detections.Simulate(n)
	list := make([]any, len(samples))
	for i, sample := range samples {
		list[i] = sample
	}

	out, err := structpb.NewStruct(map[string]any{"samples": list})
	if err != nil {
		s.logger.Error(ctx, "encode samples", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
