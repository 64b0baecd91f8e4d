package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/netguard/internal/dbx"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/detections"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/sessions"
)

// RepositoryManager vends repositories bound to a DBTX, so the same factory
// serves both plain connections and transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Detections(db dbx.DBTX) detections.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
