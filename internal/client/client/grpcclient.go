package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/sensorpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      sensorpb.SensorClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if token := s.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// mapError converts gRPC status errors to the package's sentinel errors,
// keeping the server's message for context.
func (s *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		if st.Message() == common.ErrModelUnavailable.Error() {
			return ErrModelUnavailable
		}
		return ErrUnavailable
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	default:
		return err
	}
}

func NewSensorClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = sensorpb.NewSensorClient(conn)
	return nil
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *GRPCClient) Login(ctx context.Context, userName, password string) (string, error) {

	req, err := structpb.NewStruct(map[string]any{"username": userName, "password": password})
	if err != nil {
		return "", err
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}

	token := resp.GetFields()["access_token"].GetStringValue()
	s.SetAccessToken(token)
	return token, nil

}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.client.Ping(ctx, &structpb.Struct{})
	if err != nil {
		return s.mapError(err)
	}

	if got := resp.GetFields()["status"].GetStringValue(); got != "OK" {
		return fmt.Errorf("unexpected ping status %q", got)
	}
	return nil
}

func (s *GRPCClient) Predict(ctx context.Context, features map[string]any) (map[string]any, error) {

	req, err := structpb.NewStruct(features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	resp, err := s.client.Predict(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.AsMap(), nil
}

func (s *GRPCClient) Simulate(ctx context.Context, count int) ([]map[string]any, error) {

	req, err := structpb.NewStruct(map[string]any{"count": count})
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Simulate(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	values := resp.GetFields()["samples"].GetListValue().GetValues()
	samples := make([]map[string]any, 0, len(values))
	for _, v := range values {
		samples = append(samples, v.GetStructValue().AsMap())
	}
	return samples, nil
}
