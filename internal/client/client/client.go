package client

import (
	"context"
)

type Client interface {
	Close() error
	// Login exchanges credentials for an access token, which the client
	// keeps and returns.
	Login(ctx context.Context, username, password string) (string, error)
	// SetAccessToken installs a token restored from the local cache.
	SetAccessToken(token string)
	Ping(ctx context.Context) error
	Predict(ctx context.Context, features map[string]any) (map[string]any, error)
	Simulate(ctx context.Context, count int) ([]map[string]any, error)
}
