package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/server/config"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	acc, err := h.accounts.Register(ctx, " alice ", "alice@example.com", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.UserName)
	assert.Equal(t, models.RoleUser, acc.Role)
	assert.True(t, acc.Active)
	assert.NotEqual(t, "s3cret", acc.PasswordHash)
	assert.NotContains(t, acc.PasswordHash, "s3cret")

	got, err := h.accounts.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestRegister_Duplicates(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.accounts.Register(ctx, "alice", "alice@example.com", "pw", models.RoleUser)
	require.NoError(t, err)

	_, err = h.accounts.Register(ctx, "alice", "other@example.com", "pw", models.RoleUser)
	require.ErrorIs(t, err, common.ErrConflict)

	_, err = h.accounts.Register(ctx, "alice2", "alice@example.com", "pw", models.RoleUser)
	require.ErrorIs(t, err, common.ErrConflict)

	assert.Equal(t, 1, h.store.accountCount(), "conflicts must not write")
}

func TestRegister_RoleSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.accounts.Register(ctx, "mallory", "m@example.com", "pw", models.RoleAdmin)
		require.ErrorIs(t, err, common.ErrForbidden)
		assert.Zero(t, h.store.accountCount())
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.AllowRegistrationRole = true
		h := newHarness(t, cfg)

		acc, err := h.accounts.Register(ctx, "boss", "boss@example.com", "pw", models.RoleSuperAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleSuperAdmin, acc.Role)

		_, err = h.accounts.Register(ctx, "boss2", "boss2@example.com", "pw", models.RoleSuperAdmin)
		require.ErrorIs(t, err, common.ErrSuperAdminLimitExceeded)
		assert.Equal(t, 1, h.store.superAdmins())

		acc, err = h.accounts.Register(ctx, "ops", "ops@example.com", "pw", models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, acc.Role)
	})
}

func TestRegister_Validation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	long := make([]byte, 81)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name, user, email, password string
	}{
		{"short username", "al", "al@example.com", "pw"},
		{"long username", string(long), "x@example.com", "pw"},
		{"email without at", "alice", "alice.example.com", "pw"},
		{"empty password", "alice", "alice@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.accounts.Register(ctx, tt.user, tt.email, tt.password, "")
			require.ErrorIs(t, err, common.ErrValidation)
		})
	}
	assert.Zero(t, h.store.accountCount())
}

func TestAuthenticate_Failures(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.seed(t, "bob", models.RoleUser)
	inactive := h.seed(t, "carol", models.RoleUser)
	h.store.accounts[inactive.ID].Active = false

	for _, c := range []struct{ user, pw string }{
		{"nobody", "pw"},
		{"bob", "wrong"},
		{"carol", "pw"},
	} {
		_, err := h.accounts.Authenticate(ctx, c.user, c.pw)
		require.ErrorIs(t, err, common.ErrInvalidCredentials, c.user)
	}
}

func TestCreateAccountAsAdmin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		actorRole   models.Role
		superExists bool
		in          NewAccount
		wantErr     error
		wantRole    models.Role
	}{
		{
			name:      "user actor is forbidden before anything else",
			actorRole: models.RoleUser,
			in:        NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "b"},
			wantErr:   common.ErrForbidden,
		},
		{
			name:      "password mismatch",
			actorRole: models.RoleAdmin,
			in:        NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "b"},
			wantErr:   common.ErrPasswordMismatch,
		},
		{
			name:        "second superadmin",
			actorRole:   models.RoleSuperAdmin,
			superExists: true,
			in:          NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "a", Role: models.RoleSuperAdmin},
			wantErr:     common.ErrSuperAdminLimitExceeded,
		},
		{
			name:      "admin cannot mint superadmin",
			actorRole: models.RoleAdmin,
			in:        NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "a", Role: models.RoleSuperAdmin},
			wantErr:   common.ErrForbidden,
		},
		{
			name:      "admin cannot create admin",
			actorRole: models.RoleAdmin,
			in:        NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "a", Role: models.RoleAdmin},
			wantErr:   common.ErrForbidden,
		},
		{
			name:      "admin creates user",
			actorRole: models.RoleAdmin,
			in:        NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "a"},
			wantRole:  models.RoleUser,
		},
		{
			name:        "superadmin creates admin",
			actorRole:   models.RoleSuperAdmin,
			superExists: true,
			in:          NewAccount{UserName: "new", Email: "n@example.com", Password: "a", Confirm: "a", Role: models.RoleAdmin},
			wantRole:    models.RoleAdmin,
		},
		{
			name:      "duplicate username",
			actorRole: models.RoleAdmin,
			in:        NewAccount{UserName: "taken", Email: "fresh@example.com", Password: "a", Confirm: "a"},
			wantErr:   common.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			actor := h.seed(t, "actor", tt.actorRole)
			if tt.superExists && tt.actorRole != models.RoleSuperAdmin {
				h.seed(t, "root", models.RoleSuperAdmin)
			}
			h.seed(t, "taken", models.RoleUser)
			before := h.store.accountCount()

			acc, err := h.accounts.CreateAccountAsAdmin(ctx, actor, tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, h.store.accountCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, acc.Role)
			assert.Equal(t, before+1, h.store.accountCount())
		})
	}
}

func TestEditAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("never promotes to superadmin", func(t *testing.T) {
		h := newHarness(t, nil)
		root := h.seed(t, "root", models.RoleSuperAdmin)
		user := h.seed(t, "bob", models.RoleUser)

		_, err := h.accounts.EditAccount(ctx, root, user.ID, AccountChanges{UserName: "bob", Email: user.Email, Role: models.RoleSuperAdmin})
		require.ErrorIs(t, err, common.ErrForbidden)
		assert.Equal(t, 1, h.store.superAdmins())
	})

	t.Run("admin cannot touch admin", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)
		other := h.seed(t, "ops2", models.RoleAdmin)

		_, err := h.accounts.EditAccount(ctx, admin, other.ID, AccountChanges{UserName: "x-ops", Email: other.Email})
		require.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("user actor", func(t *testing.T) {
		h := newHarness(t, nil)
		user := h.seed(t, "bob", models.RoleUser)
		other := h.seed(t, "eve", models.RoleUser)

		_, err := h.accounts.EditAccount(ctx, user, other.ID, AccountChanges{UserName: "eve", Email: other.Email})
		require.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("unknown target", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)

		_, err := h.accounts.EditAccount(ctx, admin, "missing", AccountChanges{UserName: "abc", Email: "a@b"})
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("password mismatch", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)
		user := h.seed(t, "bob", models.RoleUser)

		_, err := h.accounts.EditAccount(ctx, admin, user.ID, AccountChanges{UserName: "bob", Email: user.Email, Password: "a", Confirm: "b"})
		require.ErrorIs(t, err, common.ErrPasswordMismatch)
	})

	t.Run("conflict with another account", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)
		user := h.seed(t, "bob", models.RoleUser)
		h.seed(t, "eve", models.RoleUser)

		_, err := h.accounts.EditAccount(ctx, admin, user.ID, AccountChanges{UserName: "eve", Email: user.Email})
		require.ErrorIs(t, err, common.ErrConflict)
		got, _ := h.accounts.repomanager.Accounts(h.db).GetByID(ctx, user.ID)
		assert.Equal(t, "bob", got.UserName)
	})

	t.Run("admin role change is ignored", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)
		user := h.seed(t, "bob", models.RoleUser)

		got, err := h.accounts.EditAccount(ctx, admin, user.ID, AccountChanges{UserName: "bobby", Email: user.Email, Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, "bobby", got.UserName)
		assert.Equal(t, models.RoleUser, got.Role)
	})

	t.Run("superadmin promotes and resets password", func(t *testing.T) {
		h := newHarness(t, nil)
		root := h.seed(t, "root", models.RoleSuperAdmin)
		user := h.seed(t, "bob", models.RoleUser)

		got, err := h.accounts.EditAccount(ctx, root, user.ID, AccountChanges{
			UserName: "bob", Email: "bob@new.example", Role: models.RoleAdmin, Password: "fresh", Confirm: "fresh",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
		assert.Equal(t, "bob@new.example", got.Email)

		_, err = h.accounts.Authenticate(ctx, "bob", "fresh")
		require.NoError(t, err)
		_, err = h.accounts.Authenticate(ctx, "bob", "pw")
		require.ErrorIs(t, err, common.ErrInvalidCredentials)
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("self delete is forbidden", func(t *testing.T) {
		h := newHarness(t, nil)
		root := h.seed(t, "root", models.RoleSuperAdmin)

		err := h.accounts.DeleteAccount(ctx, root, root.ID)
		require.ErrorIs(t, err, common.ErrForbidden)
		assert.Equal(t, 1, h.store.accountCount())
	})

	t.Run("admin cannot delete admin", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)
		other := h.seed(t, "ops2", models.RoleAdmin)

		require.ErrorIs(t, h.accounts.DeleteAccount(ctx, admin, other.ID), common.ErrForbidden)
	})

	t.Run("unknown target", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)

		require.ErrorIs(t, h.accounts.DeleteAccount(ctx, admin, "missing"), common.ErrorNotFound)
	})

	t.Run("cascades detections and sessions", func(t *testing.T) {
		h := newHarness(t, nil)
		admin := h.seed(t, "ops", models.RoleAdmin)
		user := h.seed(t, "bob", models.RoleUser)
		other := h.seed(t, "eve", models.RoleUser)

		dets := &fakeDetections{h.store}
		for _, id := range []string{user.ID, user.ID, other.ID} {
			_, err := dets.Create(ctx, &models.Detection{AccountID: id, Prediction: "normal"})
			require.NoError(t, err)
		}
		_, err := h.sessions.Login(ctx, "bob", "pw", "")
		require.NoError(t, err)

		require.NoError(t, h.accounts.DeleteAccount(ctx, admin, user.ID))

		assert.Zero(t, h.store.detectionsOf(user.ID))
		assert.Zero(t, h.store.sessionsOf(user.ID))
		assert.Equal(t, 1, h.store.detectionsOf(other.ID))
		_, err = h.accounts.repomanager.Accounts(h.db).GetByID(ctx, user.ID)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestChangeOwnPassword(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	bob := h.seed(t, "bob", models.RoleUser)

	require.ErrorIs(t, h.accounts.ChangeOwnPassword(ctx, bob, "wrong", "n", "n"), common.ErrInvalidCredentials)
	require.ErrorIs(t, h.accounts.ChangeOwnPassword(ctx, bob, "pw", "n1", "n2"), common.ErrPasswordMismatch)
	require.ErrorIs(t, h.accounts.ChangeOwnPassword(ctx, bob, "pw", "", ""), common.ErrValidation)

	require.NoError(t, h.accounts.ChangeOwnPassword(ctx, bob, "pw", "new-pw", "new-pw"))
	_, err := h.accounts.Authenticate(ctx, "bob", "new-pw")
	require.NoError(t, err)
}

func TestEditOwnProfile(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	bob := h.seed(t, "bob", models.RoleUser)
	h.seed(t, "eve", models.RoleUser)

	for i := 0; i < 2; i++ {
		got, err := h.accounts.EditOwnProfile(ctx, bob, "robert", "robert@example.com")
		require.NoError(t, err, "attempt %d", i)
		assert.Equal(t, "robert", got.UserName)
		assert.Equal(t, models.RoleUser, got.Role)
	}

	_, err := h.accounts.EditOwnProfile(ctx, bob, "robert", "eve@example.com")
	require.ErrorIs(t, err, common.ErrConflict)

	_, err = h.accounts.EditOwnProfile(ctx, bob, "r", "robert@example.com")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestListAndGetAccounts_Visibility(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	root := h.seed(t, "root", models.RoleSuperAdmin)
	admin := h.seed(t, "ops", models.RoleAdmin)
	user := h.seed(t, "bob", models.RoleUser)

	all, err := h.accounts.ListAccounts(ctx, root)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	users, err := h.accounts.ListAccounts(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].UserName)

	_, err = h.accounts.ListAccounts(ctx, user)
	require.ErrorIs(t, err, common.ErrForbidden)

	_, err = h.accounts.GetAccount(ctx, admin, root.ID)
	require.ErrorIs(t, err, common.ErrForbidden)
	got, err := h.accounts.GetAccount(ctx, admin, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	_, err = h.accounts.GetAccount(ctx, root, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestEnsureSuperAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds once", func(t *testing.T) {
		h := newHarness(t, nil)

		created, err := h.accounts.EnsureSuperAdmin(ctx, "root", "root@example.com", "toor")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = h.accounts.EnsureSuperAdmin(ctx, "root", "root@example.com", "toor")
		require.NoError(t, err)
		assert.False(t, created)

		created, err = h.accounts.EnsureSuperAdmin(ctx, "root2", "root2@example.com", "toor")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 1, h.store.superAdmins())

		_, err = h.accounts.Authenticate(ctx, "root", "toor")
		require.NoError(t, err)
	})

	t.Run("default seed", func(t *testing.T) {
		h := newHarness(t, nil)
		var cfg config.Config
		cfg.LoadDefaults()

		created, err := h.accounts.EnsureSuperAdmin(ctx, cfg.AdminUserName, cfg.AdminEmail, cfg.AdminPassword)
		require.NoError(t, err)
		require.True(t, created)

		acc, err := h.accounts.Authenticate(ctx, "admin", "admin123")
		require.NoError(t, err)
		assert.Equal(t, models.RoleSuperAdmin, acc.Role)
		assert.Equal(t, "admin@example.com", acc.Email)
		assert.Equal(t, 1, h.store.superAdmins())
	})

	t.Run("disabled without username", func(t *testing.T) {
		h := newHarness(t, nil)
		created, err := h.accounts.EnsureSuperAdmin(ctx, "", "", "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Zero(t, h.store.accountCount())
	})

	t.Run("invalid seed", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.accounts.EnsureSuperAdmin(ctx, "root", "no-at-sign", "toor")
		require.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestAtMostOneSuperAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowRegistrationRole = true
	h := newHarness(t, cfg)
	ctx := context.Background()

	root := h.seed(t, "root", models.RoleSuperAdmin)
	admin := h.seed(t, "ops", models.RoleAdmin)
	user := h.seed(t, "bob", models.RoleUser)

	_, _ = h.accounts.Register(ctx, "r2", "r2@example.com", "pw", models.RoleSuperAdmin)
	_, _ = h.accounts.CreateAccountAsAdmin(ctx, root, NewAccount{UserName: "r3", Email: "r3@example.com", Password: "p", Confirm: "p", Role: models.RoleSuperAdmin})
	_, _ = h.accounts.EditAccount(ctx, root, admin.ID, AccountChanges{UserName: "ops", Email: admin.Email, Role: models.RoleSuperAdmin})
	_, _ = h.accounts.EditAccount(ctx, root, user.ID, AccountChanges{UserName: "bob", Email: user.Email, Role: models.RoleSuperAdmin})
	_, _ = h.accounts.EnsureSuperAdmin(ctx, "r4", "r4@example.com", "pw")

	assert.Equal(t, 1, h.store.superAdmins())
}
