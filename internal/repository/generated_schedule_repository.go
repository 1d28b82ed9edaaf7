package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// GeneratedScheduleRepository tracks semester generation runs.
type GeneratedScheduleRepository struct {
	db *sqlx.DB
}

// NewGeneratedScheduleRepository builds repository.
func NewGeneratedScheduleRepository(db *sqlx.DB) *GeneratedScheduleRepository {
	return &GeneratedScheduleRepository{db: db}
}

const generatedScheduleColumns = `id, start_date, end_date, semester, group_id, status, job_id, stats, error_message, created_at, completed_at`

// Create inserts a run record, assigning an id.
func (r *GeneratedScheduleRepository) Create(ctx context.Context, run *models.GeneratedSchedule) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.GeneratedScheduleStatusPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO generated_schedules (id, start_date, end_date, semester, group_id, status, job_id, stats, error_message, created_at, completed_at)
VALUES (:id, :start_date, :end_date, :semester, :group_id, :status, :job_id, :stats, :error_message, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create generated schedule: %w", err)
	}
	return nil
}

// FindByID returns the run or nil when absent.
func (r *GeneratedScheduleRepository) FindByID(ctx context.Context, id string) (*models.GeneratedSchedule, error) {
	query := `SELECT ` + generatedScheduleColumns + ` FROM generated_schedules WHERE id = $1`
	var run models.GeneratedSchedule
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find generated schedule: %w", err)
	}
	return &run, nil
}

// ListByGroup returns the group's runs, newest first.
func (r *GeneratedScheduleRepository) ListByGroup(ctx context.Context, groupID string) ([]models.GeneratedSchedule, error) {
	query := `SELECT ` + generatedScheduleColumns + ` FROM generated_schedules WHERE group_id = $1 ORDER BY created_at DESC`
	var runs []models.GeneratedSchedule
	if err := r.db.SelectContext(ctx, &runs, query, groupID); err != nil {
		return nil, fmt.Errorf("list generated schedules: %w", err)
	}
	return runs, nil
}

// MarkInProgress transitions a pending run to in_progress.
func (r *GeneratedScheduleRepository) MarkInProgress(ctx context.Context, id string) error {
	const query = `UPDATE generated_schedules SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.GeneratedScheduleStatusInProgress); err != nil {
		return fmt.Errorf("mark generated schedule in progress: %w", err)
	}
	return nil
}

// Complete stores the final stats and flips the run to its terminal status.
func (r *GeneratedScheduleRepository) Complete(ctx context.Context, id string, stats models.GenerationStats, runErr error) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal generation stats: %w", err)
	}

	status := models.GeneratedScheduleStatusCompleted
	var message *string
	if runErr != nil {
		status = models.GeneratedScheduleStatusFailed
		text := runErr.Error()
		message = &text
	}

	now := time.Now().UTC()
	const query = `UPDATE generated_schedules SET status = $2, stats = $3, error_message = $4, completed_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, raw, message, now); err != nil {
		return fmt.Errorf("complete generated schedule: %w", err)
	}
	return nil
}
