// Package accounts declares the server-side repository contract for account
// records and provides its PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/netguard/internal/server/models"
)

// Repository persists accounts. Lookups of unknown rows return
// common.ErrorNotFound; unique violations surface as common.ErrConflict or
// common.ErrSuperAdminLimitExceeded.
type Repository interface {
	// Create inserts acc and fills in its generated ID and CreatedAt.
	Create(ctx context.Context, acc *models.Account) (*models.Account, error)

	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUserName(ctx context.Context, userName string) (*models.Account, error)

	// FindConflict reports whether an account other than excludeID already
	// uses userName or email. An empty excludeID excludes nothing.
	FindConflict(ctx context.Context, userName, email, excludeID string) (bool, error)

	// CountByRoles counts accounts whose role is one of roles.
	CountByRoles(ctx context.Context, roles ...models.Role) (int64, error)

	// ListByRoles returns accounts whose role is one of roles, oldest first.
	ListByRoles(ctx context.Context, roles ...models.Role) ([]*models.Account, error)

	// Update stores the username, email and role of acc.
	Update(ctx context.Context, acc *models.Account) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error

	Delete(ctx context.Context, id string) error
}
