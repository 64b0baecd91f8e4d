// Package services contains application services for the sensor CLI.
// This file defines the session service: login against the server, logout,
// restoring a cached session and liveness probing.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/netguard/internal/client/client"
	"github.com/dmitrijs2005/netguard/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/netguard/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and cache the session locally.
//   - Restore: reinstall a cached access token, reporting the cached username.
//   - Logout: forget the cached session.
//   - WhoAmI: the cached username, empty when signed out.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Restore(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	server string
}

// NewAuthService constructs an AuthService bound to the given API client and
// DB. server identifies the endpoint a cached session belongs to.
func NewAuthService(client client.Client, db *sql.DB, server string) AuthService {
	return &authService{client: client, db: db, server: server}
}

func (a *authService) Login(ctx context.Context, userName string, password []byte) error {
	token, err := a.client.Login(ctx, userName, string(password))
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.saveSession(ctx, userName, token); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}

func (a *authService) saveSession(ctx context.Context, userName, token string) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, metadata.KeyUserName, userName); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeyAccessToken, token); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyServer, a.server)
	})
}

// Restore installs a cached token on the client. Sessions cached for a
// different server are ignored. It returns client.ErrLocalDataNotAvailable
// when there is nothing to restore.
func (a *authService) Restore(ctx context.Context) (string, error) {
	repo := metadata.NewSQLiteRepository(a.db)

	server, ok, err := repo.Get(ctx, metadata.KeyServer)
	if err != nil {
		return "", err
	}
	if !ok || server != a.server {
		return "", client.ErrLocalDataNotAvailable
	}

	token, ok, err := repo.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", client.ErrLocalDataNotAvailable
	}

	userName, _, err := repo.Get(ctx, metadata.KeyUserName)
	if err != nil {
		return "", err
	}

	a.client.SetAccessToken(token)
	return userName, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.SetAccessToken("")
	return metadata.NewSQLiteRepository(a.db).Clear(ctx)
}

func (a *authService) WhoAmI(ctx context.Context) (string, error) {
	userName, _, err := metadata.NewSQLiteRepository(a.db).Get(ctx, metadata.KeyUserName)
	return userName, err
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
