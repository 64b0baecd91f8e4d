package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/netguard/internal/client/client"
	"github.com/dmitrijs2005/netguard/internal/client/repositories/metadata"
	"github.com/stretchr/testify/require"
)

func TestAuthService_LoginCachesSession(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fc := &fakeClient{LoginToken: "jwt-1"}
	svc := NewAuthService(fc, db, "127.0.0.1:50051")

	require.NoError(t, svc.Login(ctx, "alice", []byte("pw")))
	require.Equal(t, "alice", fc.LastLoginUser)
	require.Equal(t, "pw", fc.LastLoginPass)

	repo := metadata.NewSQLiteRepository(db)
	token, ok, err := repo.Get(ctx, metadata.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "jwt-1", token)

	who, err := svc.WhoAmI(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", who)
}

func TestAuthService_LoginError(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fc := &fakeClient{LoginErr: client.ErrUnauthorized}
	svc := NewAuthService(fc, db, "srv")

	err := svc.Login(ctx, "alice", []byte("bad"))
	require.ErrorIs(t, err, client.ErrUnauthorized)

	who, err := svc.WhoAmI(ctx)
	require.NoError(t, err)
	require.Empty(t, who)
}

func TestAuthService_Restore(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	first := &fakeClient{LoginToken: "jwt-2"}
	require.NoError(t, NewAuthService(first, db, "srv").Login(ctx, "bob", []byte("pw")))

	t.Run("same server", func(t *testing.T) {
		fc := &fakeClient{}
		who, err := NewAuthService(fc, db, "srv").Restore(ctx)
		require.NoError(t, err)
		require.Equal(t, "bob", who)
		require.Equal(t, "jwt-2", fc.AccessToken)
	})

	t.Run("other server", func(t *testing.T) {
		fc := &fakeClient{}
		_, err := NewAuthService(fc, db, "elsewhere").Restore(ctx)
		require.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
		require.Empty(t, fc.AccessToken)
	})
}

func TestAuthService_RestoreEmpty(t *testing.T) {
	_, err := NewAuthService(&fakeClient{}, setupDB(t), "srv").Restore(context.Background())
	require.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fc := &fakeClient{LoginToken: "jwt"}
	svc := NewAuthService(fc, db, "srv")

	require.NoError(t, svc.Login(ctx, "alice", []byte("pw")))
	require.NoError(t, svc.Logout(ctx))
	require.Empty(t, fc.AccessToken)

	_, err := svc.Restore(ctx)
	require.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
}

func TestAuthService_PingClose(t *testing.T) {
	fc := &fakeClient{PingErr: client.ErrUnavailable, CloseErr: errors.New("close")}
	svc := NewAuthService(fc, setupDB(t), "srv")

	require.ErrorIs(t, svc.Ping(context.Background()), client.ErrUnavailable)
	require.EqualError(t, svc.Close(context.Background()), "close")
	require.True(t, fc.Closed)
}
