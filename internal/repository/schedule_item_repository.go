package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// ScheduleItemRepository manages recurring teaching loads.
type ScheduleItemRepository struct {
	db *sqlx.DB
}

// NewScheduleItemRepository builds repository.
func NewScheduleItemRepository(db *sqlx.DB) *ScheduleItemRepository {
	return &ScheduleItemRepository{db: db}
}

const scheduleItemColumns = `id, group_id, subject_id, teacher_id, room_id, total_hours, weekly_hours, week_type, teacher_slots, room_slots, created_at, updated_at`

// Create inserts an item, assigning an id.
func (r *ScheduleItemRepository) Create(ctx context.Context, item *models.ScheduleItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	const query = `
INSERT INTO schedule_items (id, group_id, subject_id, teacher_id, room_id, total_hours, weekly_hours, week_type, teacher_slots, room_slots, created_at, updated_at)
VALUES (:id, :group_id, :subject_id, :teacher_id, :room_id, :total_hours, :weekly_hours, :week_type, :teacher_slots, :room_slots, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create schedule item: %w", err)
	}
	return nil
}

// FindByID returns the item or nil when absent.
func (r *ScheduleItemRepository) FindByID(ctx context.Context, id string) (*models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items WHERE id = $1`
	var item models.ScheduleItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find schedule item: %w", err)
	}
	return &item, nil
}

// ListByGroup returns the group's items ordered for deterministic candidate
// scans: heavier weekly load first, subject id as tie-break.
func (r *ScheduleItemRepository) ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items WHERE group_id = $1 ORDER BY weekly_hours DESC, subject_id ASC`
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query, groupID); err != nil {
		return nil, fmt.Errorf("list schedule items by group: %w", err)
	}
	return items, nil
}

// List returns every item in the same deterministic order.
func (r *ScheduleItemRepository) List(ctx context.Context) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items ORDER BY group_id ASC, weekly_hours DESC, subject_id ASC`
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list schedule items: %w", err)
	}
	return items, nil
}

// AddTeacher attaches a co-teacher assignment to an item.
func (r *ScheduleItemRepository) AddTeacher(ctx context.Context, assignment *models.ScheduleItemTeacher) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	const query = `
INSERT INTO schedule_item_teachers (id, schedule_item_id, teacher_id, slot_number, is_primary)
VALUES (:id, :schedule_item_id, :teacher_id, :slot_number, :is_primary)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("add schedule item teacher: %w", err)
	}
	return nil
}

// ListTeachers returns an item's teacher assignments ordered by slot number.
func (r *ScheduleItemRepository) ListTeachers(ctx context.Context, itemID string) ([]models.ScheduleItemTeacher, error) {
	const query = `SELECT id, schedule_item_id, teacher_id, slot_number, is_primary
FROM schedule_item_teachers WHERE schedule_item_id = $1 ORDER BY slot_number ASC`
	var assignments []models.ScheduleItemTeacher
	if err := r.db.SelectContext(ctx, &assignments, query, itemID); err != nil {
		return nil, fmt.Errorf("list schedule item teachers: %w", err)
	}
	return assignments, nil
}
