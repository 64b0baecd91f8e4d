package detections

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/dbx"
	"github.com/dmitrijs2005/netguard/internal/server/models"
)

const selectColumns = `id, account_id, prediction, confidence, created_at, ip_address, protocol, src_bytes, dst_bytes`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Detection) (*models.Detection, error) {

	query :=
		`INSERT INTO detections (account_id, prediction, confidence, ip_address, protocol, src_bytes, dst_bytes)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		d.AccountID, d.Prediction, d.Confidence, d.IPAddress, d.Protocol, d.SrcBytes, d.DstBytes).
		Scan(&d.ID, &d.Timestamp)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return d, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.Detection, error) {
	query := `SELECT ` + selectColumns + ` FROM detections WHERE account_id = $1 ORDER BY created_at DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*models.Detection, error) {
	query := `SELECT ` + selectColumns + ` FROM detections ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Detection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Detection
	for rows.Next() {
		d := &models.Detection{}
		if err := rows.Scan(&d.ID, &d.AccountID, &d.Prediction, &d.Confidence, &d.Timestamp,
			&d.IPAddress, &d.Protocol, &d.SrcBytes, &d.DstBytes); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, accountID string) (models.DetectionStats, error) {
	query :=
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE prediction = $1)
		 FROM detections
		 WHERE ($2 = '' OR account_id::text = $2)
		 `

	var s models.DetectionStats
	if err := r.db.QueryRowContext(ctx, query, common.NormalLabel, accountID).Scan(&s.Total, &s.Normal); err != nil {
		return models.DetectionStats{}, fmt.Errorf("db error: %w", err)
	}
	s.Attack = s.Total - s.Normal

	return s, nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	query :=
		`DELETE FROM detections
		 WHERE account_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
