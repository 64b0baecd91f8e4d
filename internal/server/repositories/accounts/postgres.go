package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/dbx"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/google/uuid"
)

const (
	constraintUserName   = "accounts_username_key"
	constraintEmail      = "accounts_email_key"
	constraintSuperAdmin = "accounts_single_superadmin"
)

const selectColumns = `id, username, email, password_hash, role, is_active, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*models.Account, error) {
	acc := &models.Account{}
	var role string
	if err := s.Scan(&acc.ID, &acc.UserName, &acc.Email, &acc.PasswordHash, &role, &acc.Active, &acc.CreatedAt); err != nil {
		return nil, err
	}
	acc.Role = models.Role(role)
	return acc, nil
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error) error {
	switch {
	case dbx.IsUniqueViolation(err, constraintSuperAdmin):
		return common.ErrSuperAdminLimitExceeded
	case dbx.IsUniqueViolation(err, constraintUserName), dbx.IsUniqueViolation(err, constraintEmail):
		return common.ErrConflict
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

// validID reports whether id can be bound to the UUID primary key. Anything
// else cannot match a row, and PostgreSQL would reject it with 22P02.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func rolePlaceholders(roles []models.Role, offset int) (string, []any) {
	ph := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, r := range roles {
		ph[i] = fmt.Sprintf("$%d", i+1+offset)
		args[i] = string(r)
	}
	return strings.Join(ph, ", "), args
}

func (r *PostgresRepository) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (username, email, password_hash, role, is_active)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		acc.UserName, acc.Email, acc.PasswordHash, string(acc.Role), acc.Active).Scan(&acc.ID, &acc.CreatedAt)

	if err != nil {
		return nil, mapWriteError(err)
	}

	return acc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	query := `SELECT ` + selectColumns + ` FROM accounts
		 WHERE id = $1
		 `

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acc, nil
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts
		 WHERE username = $1
		 `

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, userName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acc, nil
}

func (r *PostgresRepository) FindConflict(ctx context.Context, userName, email, excludeID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM accounts
		   WHERE (username = $1 OR email = $2) AND ($3 = '' OR id::text <> $3)
		 )
		 `

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userName, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) CountByRoles(ctx context.Context, roles ...models.Role) (int64, error) {
	if len(roles) == 0 {
		return 0, nil
	}

	in, args := rolePlaceholders(roles, 0)
	query := `SELECT COUNT(*) FROM accounts WHERE role IN (` + in + `)`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) ListByRoles(ctx context.Context, roles ...models.Role) ([]*models.Account, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	in, args := rolePlaceholders(roles, 0)
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE role IN (` + in + `) ORDER BY created_at, username`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, acc *models.Account) error {
	query :=
		`UPDATE accounts SET username = $1, email = $2, role = $3
		 WHERE id = $4
		 `

	res, err := r.db.ExecContext(ctx, query, acc.UserName, acc.Email, string(acc.Role), acc.ID)
	if err != nil {
		return mapWriteError(err)
	}

	return requireAffected(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}

	query :=
		`UPDATE accounts SET password_hash = $1
		 WHERE id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}

	query :=
		`DELETE FROM accounts
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
