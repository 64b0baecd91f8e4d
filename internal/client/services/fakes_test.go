package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/netguard/internal/client/client"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive across calls
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, client.RunMigrations(context.Background(), db))
	return db
}

// fakeClient implements client.Client for unit tests.
type fakeClient struct {
	LoginToken string
	LoginErr   error
	PingErr    error
	CloseErr   error

	PredictFn   func(map[string]any) (map[string]any, error)
	SimulateRet []map[string]any
	SimulateErr error

	LastLoginUser string
	LastLoginPass string
	LastSimulate  int
	Predicted     []map[string]any
	AccessToken   string
	Closed        bool
}

func (f *fakeClient) Close() error {
	f.Closed = true
	return f.CloseErr
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (string, error) {
	f.LastLoginUser, f.LastLoginPass = username, password
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.AccessToken = f.LoginToken
	return f.LoginToken, nil
}

func (f *fakeClient) SetAccessToken(token string) { f.AccessToken = token }

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) Predict(ctx context.Context, features map[string]any) (map[string]any, error) {
	f.Predicted = append(f.Predicted, features)
	if f.PredictFn != nil {
		return f.PredictFn(features)
	}
	return map[string]any{"prediction": "normal"}, nil
}

func (f *fakeClient) Simulate(ctx context.Context, count int) ([]map[string]any, error) {
	f.LastSimulate = count
	return f.SimulateRet, f.SimulateErr
}
