// Package sessions declares the server-side repository contract for browser
// sessions and its PostgreSQL implementation.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/netguard/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking sessions.
type Repository interface {
	// Create stores a new session.
	Create(ctx context.Context, s *models.Session) error

	// Find looks up a session by its opaque token. Returns common.ErrorNotFound
	// when the token is absent.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by token. Deleting a non-existent token is not
	// an error.
	Delete(ctx context.Context, token string) error

	// DeleteByAccount revokes every session of an account.
	DeleteByAccount(ctx context.Context, accountID string) error
}
