package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"edgecam"
)

type CalibrationSQLite struct {
	db *sql.DB
}

func NewCalibrationSQLite(db *sql.DB) *CalibrationSQLite {
	return &CalibrationSQLite{db: db}
}

const (
	calibrationRowID = 1

	upsertCalibrationSQL = `
		INSERT INTO calibration (id, overhead_s, overhead_known, pending_shutdown_at, scheduled_wake_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			overhead_s=excluded.overhead_s,
			overhead_known=excluded.overhead_known,
			pending_shutdown_at=excluded.pending_shutdown_at,
			scheduled_wake_at=excluded.scheduled_wake_at,
			updated_at=excluded.updated_at
	`

	selectCalibrationSQL = `
		SELECT id, overhead_s, overhead_known, pending_shutdown_at, scheduled_wake_at, updated_at
		FROM calibration WHERE id=?
	`
)

// toNullTime converts an optional timestamp to its SQL representation,
// normalized to UTC.
func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	u := nt.Time.UTC()
	return &u
}

// Save writes the calibration row (id always 1). This runs immediately
// before a shutdown request, so it must not defer any work.
func (r *CalibrationSQLite) Save(ctx context.Context, rec edgecam.CalibrationRecord) error {
	tsUTC := rec.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertCalibrationSQL,
		calibrationRowID,
		rec.OverheadSeconds,
		rec.OverheadKnown,
		toNullTime(rec.PendingShutdownAt),
		toNullTime(rec.ScheduledWakeAt),
		tsUTC,
	)
	return err
}

// Load fetches the calibration row. A missing row is not an error: it is
// the uncalibrated first-boot state.
func (r *CalibrationSQLite) Load(ctx context.Context) (edgecam.CalibrationRecord, error) {
	row := r.db.QueryRowContext(ctx, selectCalibrationSQL, calibrationRowID)

	var rec edgecam.CalibrationRecord
	var pending, wake sql.NullTime
	if err := row.Scan(
		&rec.ID,
		&rec.OverheadSeconds,
		&rec.OverheadKnown,
		&pending,
		&wake,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return edgecam.CalibrationRecord{}, nil
		}
		return edgecam.CalibrationRecord{}, err
	}

	rec.PendingShutdownAt = fromNullTime(pending)
	rec.ScheduledWakeAt = fromNullTime(wake)
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}
