package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// CalendarRepository manages practices and holidays, the two date-range
// suppressions consulted before any placement.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository builds repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// CreatePractice inserts a practice window, assigning an id.
func (r *CalendarRepository) CreatePractice(ctx context.Context, practice *models.Practice) error {
	if practice.ID == "" {
		practice.ID = uuid.NewString()
	}
	const query = `INSERT INTO practices (id, group_id, start_date, end_date, name) VALUES (:id, :group_id, :start_date, :end_date, :name)`
	if _, err := r.db.NamedExecContext(ctx, query, practice); err != nil {
		return fmt.Errorf("create practice: %w", err)
	}
	return nil
}

// ListPracticesByGroup returns a group's practices ordered by start date.
func (r *CalendarRepository) ListPracticesByGroup(ctx context.Context, groupID string) ([]models.Practice, error) {
	const query = `SELECT id, group_id, start_date, end_date, name FROM practices WHERE group_id = $1 ORDER BY start_date ASC`
	var practices []models.Practice
	if err := r.db.SelectContext(ctx, &practices, query, groupID); err != nil {
		return nil, fmt.Errorf("list practices: %w", err)
	}
	return practices, nil
}

// GroupOnPractice reports whether the group has a practice covering the date.
func (r *CalendarRepository) GroupOnPractice(ctx context.Context, groupID string, date time.Time) (bool, error) {
	const query = `SELECT COUNT(*) FROM practices WHERE group_id = $1 AND start_date <= $2 AND end_date >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, groupID, date); err != nil {
		return false, fmt.Errorf("check practice: %w", err)
	}
	return count > 0, nil
}

// DeletePractice removes one practice window.
func (r *CalendarRepository) DeletePractice(ctx context.Context, id string) error {
	const query = `DELETE FROM practices WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete practice: %w", err)
	}
	return nil
}

// CreateHoliday inserts a holiday window, assigning an id.
func (r *CalendarRepository) CreateHoliday(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	const query = `INSERT INTO holidays (id, start_date, end_date, name) VALUES (:id, :start_date, :end_date, :name)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// ListHolidays returns every holiday ordered by start date.
func (r *CalendarRepository) ListHolidays(ctx context.Context) ([]models.Holiday, error) {
	const query = `SELECT id, start_date, end_date, name FROM holidays ORDER BY start_date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// ListHolidaysOverlapping returns holidays intersecting [from, to].
func (r *CalendarRepository) ListHolidaysOverlapping(ctx context.Context, from, to time.Time) ([]models.Holiday, error) {
	const query = `SELECT id, start_date, end_date, name FROM holidays WHERE start_date <= $2 AND end_date >= $1 ORDER BY start_date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, from, to); err != nil {
		return nil, fmt.Errorf("list overlapping holidays: %w", err)
	}
	return holidays, nil
}

// DeleteHoliday removes one holiday window.
func (r *CalendarRepository) DeleteHoliday(ctx context.Context, id string) error {
	const query = `DELETE FROM holidays WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}
