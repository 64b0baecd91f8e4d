// Package detections stores inference outcomes per account.
package detections

import (
	"context"

	"github.com/dmitrijs2005/netguard/internal/server/models"
)

// Repository persists detection records. Records are append-only; the only
// removal path is DeleteByAccount, used when an account is deleted.
type Repository interface {
	// Create inserts d and fills in its generated ID and Timestamp.
	Create(ctx context.Context, d *models.Detection) (*models.Detection, error)

	// ListByAccount returns the account's records newest first. limit <= 0
	// returns all of them.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.Detection, error)

	// Recent returns the newest records across all accounts.
	Recent(ctx context.Context, limit int) ([]*models.Detection, error)

	// Stats counts records for accountID, or globally when accountID is empty.
	Stats(ctx context.Context, accountID string) (models.DetectionStats, error)

	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
}
