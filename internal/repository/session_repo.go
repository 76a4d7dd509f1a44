package repository

import (
	"context"
	"database/sql"
	"time"
)

// SessionRecord is one completed session as journaled locally. The journal
// is the station's own audit trail; the billing backend remains the source
// of truth for invoicing.
type SessionRecord struct {
	ID          int64     `db:"id" json:"id"`
	StationID   string    `db:"station_id" json:"station_id"`
	TagID       string    `db:"tag_id" json:"tag_id"`
	ContractID  int64     `db:"contract_id" json:"contract_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	BlockingFee float64   `db:"blocking_fee" json:"blocking_fee"`
	ChargingFee float64   `db:"charging_fee" json:"charging_fee"`
	TotalCost   float64   `db:"total_cost" json:"total_cost"`
	Currency    string    `db:"currency" json:"currency"`
	Reported    bool      `db:"reported" json:"reported"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SessionRepository journals completed charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert journals one completed session.
func (r *SessionRepository) Insert(ctx context.Context, rec *SessionRecord) error {
	const query = `
		INSERT INTO charging_sessions (station_id, tag_id, contract_id, start_time, end_time, blocking_fee, charging_fee, total_cost, currency, reported, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		rec.StationID,
		rec.TagID,
		rec.ContractID,
		rec.StartTime,
		rec.EndTime,
		rec.BlockingFee,
		rec.ChargingFee,
		rec.TotalCost,
		rec.Currency,
		rec.Reported,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// Recent returns the last N journaled sessions for this station.
func (r *SessionRepository) Recent(ctx context.Context, stationID string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, station_id, tag_id, contract_id, start_time, end_time, blocking_fee, charging_fee, total_cost, currency, reported, created_at
		FROM charging_sessions
		WHERE station_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.StationID,
			&rec.TagID,
			&rec.ContractID,
			&rec.StartTime,
			&rec.EndTime,
			&rec.BlockingFee,
			&rec.ChargingFee,
			&rec.TotalCost,
			&rec.Currency,
			&rec.Reported,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
