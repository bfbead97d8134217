package repository

import (
	"context"
	"database/sql"

	"edgecam"
)

// CalibrationRepo persists the single power-cycle calibration record.
// The overhead calibrator is its only writer.
type CalibrationRepo interface {
	Save(ctx context.Context, rec edgecam.CalibrationRecord) error
	Load(ctx context.Context) (edgecam.CalibrationRecord, error)
}

type Repository struct {
	Calibration CalibrationRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Calibration: NewCalibrationSQLite(db),
	}
}
