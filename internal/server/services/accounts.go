package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/dbx"
	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/server/auth"
	"github.com/dmitrijs2005/netguard/internal/server/config"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/policy"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/repomanager"
)

const (
	minUserNameLen = 3
	maxUserNameLen = 80
	maxEmailLen    = 120
)

// NewAccount is the input of admin-driven account creation.
type NewAccount struct {
	UserName string
	Email    string
	Password string
	Confirm  string
	Role     models.Role
}

// AccountChanges is the input of EditAccount. An empty Role leaves the role
// as it is; an empty Password leaves the password as it is.
type AccountChanges struct {
	UserName string
	Email    string
	Role     models.Role
	Password string
	Confirm  string
}

// AccountService implements the account lifecycle: registration,
// authentication, self-service edits and role-gated administration.
type AccountService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	hasher                auth.PasswordHasher
	allowRegistrationRole bool
	log                   logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, cfg *config.Config, log logging.Logger) *AccountService {
	return &AccountService{
		db:                    db,
		repomanager:           m,
		hasher:                hasher,
		allowRegistrationRole: cfg.AllowRegistrationRole,
		log:                   log.With("module", "accounts"),
	}
}

func validateIdentity(userName, email string) error {
	n := utf8.RuneCountInString(userName)
	if n < minUserNameLen || n > maxUserNameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", common.ErrValidation, minUserNameLen, maxUserNameLen)
	}
	if utf8.RuneCountInString(email) > maxEmailLen || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", common.ErrValidation)
	}
	return nil
}

// mapTxError turns unique violations that escaped the in-transaction checks
// (a concurrent insert) into domain errors.
func mapTxError(err error) error {
	switch {
	case err == nil:
		return nil
	case dbx.IsUniqueViolation(err, "accounts_single_superadmin"):
		return common.ErrSuperAdminLimitExceeded
	case dbx.IsUniqueViolation(err, ""):
		return common.ErrConflict
	default:
		return err
	}
}

// create runs the conflict and SuperAdmin checks and inserts acc in one
// transaction.
func (s *AccountService) create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		taken, err := repo.FindConflict(ctx, acc.UserName, acc.Email, "")
		if err != nil {
			return fmt.Errorf("error checking conflicts: %w", err)
		}
		if taken {
			return common.ErrConflict
		}

		if acc.Role == models.RoleSuperAdmin {
			n, err := repo.CountByRoles(ctx, models.RoleSuperAdmin)
			if err != nil {
				return fmt.Errorf("error counting superadmins: %w", err)
			}
			if n > 0 {
				return common.ErrSuperAdminLimitExceeded
			}
		}

		acc, err = repo.Create(ctx, acc)
		if err != nil {
			return fmt.Errorf("error creating account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return acc, nil
}

// Register creates an account through public sign-up. role may be empty,
// meaning User. Other roles are accepted only when the server allows
// registration to pick a role.
func (s *AccountService) Register(ctx context.Context, userName, email, password string, role models.Role) (*models.Account, error) {
	userName, email = strings.TrimSpace(userName), strings.TrimSpace(email)
	if role == "" {
		role = models.RoleUser
	}

	if role != models.RoleUser {
		if !s.allowRegistrationRole {
			return nil, fmt.Errorf("%w: registration cannot choose role %s", common.ErrForbidden, role)
		}
		s.log.Warn(ctx, "registration with elevated role", "username", userName, "role", role)
	}

	if err := validateIdentity(userName, email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	acc, err := s.create(ctx, &models.Account{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account registered", "account_id", acc.ID, "role", acc.Role)
	return acc, nil
}

// Authenticate checks credentials. Unknown users, inactive accounts and wrong
// passwords all yield common.ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, userName, password string) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.GetByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	if !acc.Active {
		return nil, common.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(acc.PasswordHash, password)
	if err != nil {
		s.log.Error(ctx, "stored password hash unreadable", "account_id", acc.ID, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return acc, nil
}

// CreateAccountAsAdmin creates an account on behalf of actor.
func (s *AccountService) CreateAccountAsAdmin(ctx context.Context, actor *models.Account, in NewAccount) (*models.Account, error) {
	if !policy.CanManageUsers(actor.Role) {
		return nil, common.ErrForbidden
	}
	if in.Password != in.Confirm {
		return nil, common.ErrPasswordMismatch
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	switch role {
	case models.RoleSuperAdmin:
		n, err := s.repomanager.Accounts(s.db).CountByRoles(ctx, models.RoleSuperAdmin)
		if err != nil {
			return nil, fmt.Errorf("error counting superadmins: %w", err)
		}
		if n > 0 {
			return nil, common.ErrSuperAdminLimitExceeded
		}
		if actor.Role != models.RoleSuperAdmin {
			return nil, common.ErrForbidden
		}
	case models.RoleAdmin:
		if !policy.CanManageAdmins(actor.Role) {
			return nil, common.ErrForbidden
		}
	}

	userName, email := strings.TrimSpace(in.UserName), strings.TrimSpace(in.Email)
	if err := validateIdentity(userName, email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	acc, err := s.create(ctx, &models.Account{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account created by admin", "actor_id", actor.ID, "account_id", acc.ID, "role", acc.Role)
	return acc, nil
}

// EditAccount changes another account's identity, role or password.
func (s *AccountService) EditAccount(ctx context.Context, actor *models.Account, targetID string, ch AccountChanges) (*models.Account, error) {
	if !policy.CanManageUsers(actor.Role) {
		return nil, common.ErrForbidden
	}

	userName, email := strings.TrimSpace(ch.UserName), strings.TrimSpace(ch.Email)

	var newHash string
	var target *models.Account

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		var err error
		target, err = repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}

		if !policy.CanManage(actor.Role, target.Role) {
			return common.ErrForbidden
		}
		if ch.Role == models.RoleSuperAdmin && target.Role != models.RoleSuperAdmin {
			return common.ErrForbidden
		}
		if ch.Password != "" && ch.Password != ch.Confirm {
			return common.ErrPasswordMismatch
		}
		if err := validateIdentity(userName, email); err != nil {
			return err
		}

		taken, err := repo.FindConflict(ctx, userName, email, target.ID)
		if err != nil {
			return fmt.Errorf("error checking conflicts: %w", err)
		}
		if taken {
			return common.ErrConflict
		}

		target.UserName = userName
		target.Email = email
		if ch.Role != "" && policy.CanManageAdmins(actor.Role) {
			target.Role = ch.Role
		}
		if err := repo.Update(ctx, target); err != nil {
			return fmt.Errorf("error updating account: %w", err)
		}

		if ch.Password != "" {
			newHash, err = s.hasher.Hash(ch.Password)
			if err != nil {
				return fmt.Errorf("error hashing password: %w", err)
			}
			if err := repo.UpdatePassword(ctx, target.ID, newHash); err != nil {
				return fmt.Errorf("error updating password: %w", err)
			}
			target.PasswordHash = newHash
		}
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	s.log.Info(ctx, "account edited", "actor_id", actor.ID, "account_id", target.ID, "role", target.Role, "password_changed", newHash != "")
	return target, nil
}

// DeleteAccount removes targetID together with its detection records and
// sessions.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *models.Account, targetID string) error {
	if actor.ID == targetID {
		return fmt.Errorf("%w: cannot delete your own account", common.ErrForbidden)
	}
	if !policy.CanManageUsers(actor.Role) {
		return common.ErrForbidden
	}

	var removed int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)

		target, err := accounts.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if !policy.CanManage(actor.Role, target.Role) {
			return common.ErrForbidden
		}

		removed, err = s.repomanager.Detections(tx).DeleteByAccount(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("error deleting detections: %w", err)
		}
		if err := s.repomanager.Sessions(tx).DeleteByAccount(ctx, target.ID); err != nil {
			return fmt.Errorf("error deleting sessions: %w", err)
		}
		if err := accounts.Delete(ctx, target.ID); err != nil {
			return fmt.Errorf("error deleting account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "account deleted", "actor_id", actor.ID, "account_id", targetID, "detections_removed", removed)
	return nil
}

// ChangeOwnPassword replaces actor's password after checking the old one.
func (s *AccountService) ChangeOwnPassword(ctx context.Context, actor *models.Account, oldPassword, newPassword, confirm string) error {
	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(acc.PasswordHash, oldPassword)
	if err != nil || !ok {
		return common.ErrInvalidCredentials
	}
	if newPassword != confirm {
		return common.ErrPasswordMismatch
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := repo.UpdatePassword(ctx, acc.ID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.log.Info(ctx, "password changed", "account_id", acc.ID)
	return nil
}

// EditOwnProfile changes actor's username and email. Resubmitting the
// current values succeeds.
func (s *AccountService) EditOwnProfile(ctx context.Context, actor *models.Account, userName, email string) (*models.Account, error) {
	userName, email = strings.TrimSpace(userName), strings.TrimSpace(email)
	if err := validateIdentity(userName, email); err != nil {
		return nil, err
	}

	var acc *models.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		taken, err := repo.FindConflict(ctx, userName, email, actor.ID)
		if err != nil {
			return fmt.Errorf("error checking conflicts: %w", err)
		}
		if taken {
			return common.ErrConflict
		}

		acc, err = repo.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		acc.UserName = userName
		acc.Email = email
		if err := repo.Update(ctx, acc); err != nil {
			return fmt.Errorf("error updating account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	return acc, nil
}

// ListAccounts returns the accounts actor is allowed to see.
func (s *AccountService) ListAccounts(ctx context.Context, actor *models.Account) ([]*models.Account, error) {
	roles := policy.VisibleRoles(actor.Role)
	if roles == nil {
		return nil, common.ErrForbidden
	}

	list, err := s.repomanager.Accounts(s.db).ListByRoles(ctx, roles...)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	return list, nil
}

// GetAccount loads one account under the same visibility rules as
// ListAccounts.
func (s *AccountService) GetAccount(ctx context.Context, actor *models.Account, id string) (*models.Account, error) {
	roles := policy.VisibleRoles(actor.Role)
	if roles == nil {
		return nil, common.ErrForbidden
	}

	acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(roles, acc.Role) {
		return nil, common.ErrForbidden
	}
	return acc, nil
}

// EnsureSuperAdmin seeds the initial SuperAdmin. It does nothing when
// userName is empty, when that user already exists, or when some SuperAdmin
// already exists. The boolean reports whether an account was created.
func (s *AccountService) EnsureSuperAdmin(ctx context.Context, userName, email, password string) (bool, error) {
	userName, email = strings.TrimSpace(userName), strings.TrimSpace(email)
	if userName == "" {
		return false, nil
	}

	repo := s.repomanager.Accounts(s.db)

	_, err := repo.GetByUserName(ctx, userName)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return false, fmt.Errorf("error loading account: %w", err)
	}

	n, err := repo.CountByRoles(ctx, models.RoleSuperAdmin)
	if err != nil {
		return false, fmt.Errorf("error counting superadmins: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	if err := validateIdentity(userName, email); err != nil {
		return false, err
	}
	if err := validatePassword(password); err != nil {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("error hashing password: %w", err)
	}

	acc, err := s.create(ctx, &models.Account{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Active:       true,
	})
	if errors.Is(err, common.ErrSuperAdminLimitExceeded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Info(ctx, "superadmin seeded", "account_id", acc.ID, "username", acc.UserName)
	return true, nil
}
