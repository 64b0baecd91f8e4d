package grpc

import (
	"context"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/sensorpb"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

var protectedMethods = map[string]bool{
	sensorpb.MethodPredict:  true,
	sensorpb.MethodSimulate: true,
}

func principalFrom(ctx context.Context) (*models.Account, bool) {
	acc, ok := ctx.Value(principalKey).(*models.Account)
	return acc, ok && acc != nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protectedMethods[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		acc, err := s.sessions.PrincipalFromAccessToken(ctx, accessToken)
		if err != nil {
			return nil, toStatus(err)
		}

		ctx = context.WithValue(ctx, principalKey, acc)

	}

	return handler(ctx, req)
}
