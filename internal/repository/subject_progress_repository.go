package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// SubjectProgressRepository records consumed hours, one row per approved
// entry.
type SubjectProgressRepository struct {
	db *sqlx.DB
}

// NewSubjectProgressRepository builds repository.
func NewSubjectProgressRepository(db *sqlx.DB) *SubjectProgressRepository {
	return &SubjectProgressRepository{db: db}
}

// CreateIfAbsent inserts a progress row unless one with the same note already
// exists. The note carries the source entry id, which makes re-approval
// idempotent.
func (r *SubjectProgressRepository) CreateIfAbsent(ctx context.Context, progress *models.SubjectProgress) (bool, error) {
	if progress.Note != nil {
		const existsQuery = `SELECT COUNT(*) FROM subject_progress WHERE schedule_item_id = $1 AND note = $2`
		var count int
		if err := r.db.GetContext(ctx, &count, existsQuery, progress.ScheduleItemID, *progress.Note); err != nil {
			return false, fmt.Errorf("check subject progress: %w", err)
		}
		if count > 0 {
			return false, nil
		}
	}

	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	const query = `INSERT INTO subject_progress (id, schedule_item_id, date, hours, note) VALUES (:id, :schedule_item_id, :date, :hours, :note)`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return false, fmt.Errorf("create subject progress: %w", err)
	}
	return true, nil
}

// ListByItem returns an item's progress rows ordered by date.
func (r *SubjectProgressRepository) ListByItem(ctx context.Context, itemID string) ([]models.SubjectProgress, error) {
	const query = `SELECT id, schedule_item_id, date, hours, note FROM subject_progress WHERE schedule_item_id = $1 ORDER BY date ASC`
	var rows []models.SubjectProgress
	if err := r.db.SelectContext(ctx, &rows, query, itemID); err != nil {
		return nil, fmt.Errorf("list subject progress: %w", err)
	}
	return rows, nil
}

// TotalHours sums an item's consumed hours up to a date.
func (r *SubjectProgressRepository) TotalHours(ctx context.Context, itemID string, until time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) FROM subject_progress WHERE schedule_item_id = $1 AND date <= $2`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, itemID, until); err != nil {
		return 0, fmt.Errorf("sum subject progress: %w", err)
	}
	return total, nil
}
