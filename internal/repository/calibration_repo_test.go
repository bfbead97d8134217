package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"edgecam"
	"edgecam/internal/repository"
)

// sqlmockArgumentFunc adapts a predicate to sqlmock's argument matcher.
type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool { return f(v) }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestCalibrationSQLite_Save_WritesPendingMarker(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewCalibrationSQLite(db)

	pending := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	wake := pending.Add(545 * time.Second)

	isUTCTime := func(want time.Time) sqlmockArgumentFunc {
		return func(v driver.Value) bool {
			nt, ok := v.(time.Time)
			if !ok {
				return false
			}
			return nt.Equal(want) && nt.Location() == time.UTC
		}
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibration")).
		WithArgs(
			1,
			50.0,
			true,
			isUTCTime(pending),
			isUTCTime(wake),
			isUTCTime(pending),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := edgecam.CalibrationRecord{
		ID:                1,
		OverheadSeconds:   50.0,
		OverheadKnown:     true,
		PendingShutdownAt: &pending,
		ScheduledWakeAt:   &wake,
		UpdatedAt:         pending,
	}
	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCalibrationSQLite_Save_NilTimestampsBecomeNull(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewCalibrationSQLite(db)

	isNull := sqlmockArgumentFunc(func(v driver.Value) bool { return v == nil })
	isRecentUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		nt, ok := v.(time.Time)
		if !ok || nt.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !nt.Before(now.Add(-5*time.Second)) && !nt.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calibration")).
		WithArgs(1, 0.0, false, isNull, isNull, isRecentUTC).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Zero UpdatedAt is replaced by now in UTC.
	if err := repo.Save(context.Background(), edgecam.CalibrationRecord{ID: 1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCalibrationSQLite_Load(t *testing.T) {
	t.Parallel()

	pending := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	updated := pending.Add(time.Second)

	t.Run("returns stored record", func(t *testing.T) {
		db, mock := newMock(t)
		repo := repository.NewCalibrationSQLite(db)

		rows := sqlmock.NewRows([]string{
			"id", "overhead_s", "overhead_known", "pending_shutdown_at", "scheduled_wake_at", "updated_at",
		}).AddRow(1, 50.0, true, pending, nil, updated)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, overhead_s, overhead_known")).
			WithArgs(1).
			WillReturnRows(rows)

		got, err := repo.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.OverheadSeconds != 50.0 || !got.OverheadKnown {
			t.Errorf("overhead = %+v, want 50.0/known", got)
		}
		if got.PendingShutdownAt == nil || !got.PendingShutdownAt.Equal(pending) {
			t.Errorf("pending = %v, want %v", got.PendingShutdownAt, pending)
		}
		if got.ScheduledWakeAt != nil {
			t.Errorf("scheduled wake = %v, want nil", got.ScheduledWakeAt)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("missing row is the uncalibrated state", func(t *testing.T) {
		db, mock := newMock(t)
		repo := repository.NewCalibrationSQLite(db)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, overhead_s, overhead_known")).
			WithArgs(1).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.OverheadKnown || got.PendingShutdownAt != nil {
			t.Errorf("missing row produced non-zero record: %+v", got)
		}
	})
}
