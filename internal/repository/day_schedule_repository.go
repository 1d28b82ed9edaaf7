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

// DayScheduleRepository manages day schedules and their entries.
type DayScheduleRepository struct {
	db *sqlx.DB
}

// NewDayScheduleRepository builds repository.
func NewDayScheduleRepository(db *sqlx.DB) *DayScheduleRepository {
	return &DayScheduleRepository{db: db}
}

func (r *DayScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BeginTxx starts a transaction for multi-entry mutations.
func (r *DayScheduleRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

const dayScheduleColumns = `id, date, status, created_at, updated_at`

const dayEntryColumns = `id, day_schedule_id, group_id, subject_id, teacher_id, room_id, start_time, end_time, status, schedule_item_id, created_at, updated_at`

// FindByDate returns the day schedule for a date, or nil.
func (r *DayScheduleRepository) FindByDate(ctx context.Context, date time.Time) (*models.DaySchedule, error) {
	query := `SELECT ` + dayScheduleColumns + ` FROM day_schedules WHERE date = $1`
	var day models.DaySchedule
	if err := r.db.GetContext(ctx, &day, query, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find day schedule by date: %w", err)
	}
	return &day, nil
}

// FindByID returns the day schedule, or nil.
func (r *DayScheduleRepository) FindByID(ctx context.Context, id string) (*models.DaySchedule, error) {
	query := `SELECT ` + dayScheduleColumns + ` FROM day_schedules WHERE id = $1`
	var day models.DaySchedule
	if err := r.db.GetContext(ctx, &day, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find day schedule: %w", err)
	}
	return &day, nil
}

// GetOrCreateByDate resolves the day schedule for a date, creating a pending
// one when absent.
func (r *DayScheduleRepository) GetOrCreateByDate(ctx context.Context, date time.Time) (*models.DaySchedule, error) {
	day, err := r.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if day != nil {
		return day, nil
	}

	now := time.Now().UTC()
	day = &models.DaySchedule{
		ID:        uuid.NewString(),
		Date:      date,
		Status:    models.DayScheduleStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const query = `INSERT INTO day_schedules (id, date, status, created_at, updated_at) VALUES (:id, :date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return nil, fmt.Errorf("create day schedule: %w", err)
	}
	return day, nil
}

// UpdateStatus flips a day's approval status.
func (r *DayScheduleRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.DayScheduleStatus) error {
	target := r.exec(exec)
	const query = `UPDATE day_schedules SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := target.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update day schedule status: %w", err)
	}
	return nil
}

// CreateEntry inserts one entry, assigning an id.
func (r *DayScheduleRepository) CreateEntry(ctx context.Context, entry *models.DayScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.DayEntryStatusPending
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `
INSERT INTO day_schedule_entries (id, day_schedule_id, group_id, subject_id, teacher_id, room_id, start_time, end_time, status, schedule_item_id, created_at, updated_at)
VALUES (:id, :day_schedule_id, :group_id, :subject_id, :teacher_id, :room_id, :start_time, :end_time, :status, :schedule_item_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create day entry: %w", err)
	}
	return nil
}

// FindEntryByID returns one entry, or nil.
func (r *DayScheduleRepository) FindEntryByID(ctx context.Context, id string) (*models.DayScheduleEntry, error) {
	query := `SELECT ` + dayEntryColumns + ` FROM day_schedule_entries WHERE id = $1`
	var entry models.DayScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find day entry: %w", err)
	}
	return &entry, nil
}

// ListEntries returns a day's entries, optionally narrowed by the filter,
// ordered by start time then group for stable analysis.
func (r *DayScheduleRepository) ListEntries(ctx context.Context, dayID string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error) {
	query := `SELECT ` + dayEntryColumns + ` FROM day_schedule_entries WHERE day_schedule_id = $1`
	args := []interface{}{dayID}

	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		query += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		query += fmt.Sprintf(" AND room_id = $%d", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	if filter.StartTime != "" {
		args = append(args, filter.StartTime)
		query += fmt.Sprintf(" AND start_time = $%d", len(args))
	}
	query += ` ORDER BY start_time ASC, group_id ASC`

	var entries []models.DayScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list day entries: %w", err)
	}
	return entries, nil
}

// UpdateEntryResources rewrites an entry's teacher/subject/room and status.
// Runs inside the supplied transaction when one is given.
func (r *DayScheduleRepository) UpdateEntryResources(ctx context.Context, exec sqlx.ExtContext, entry *models.DayScheduleEntry) error {
	target := r.exec(exec)
	entry.UpdatedAt = time.Now().UTC()
	const query = `
UPDATE day_schedule_entries
SET teacher_id = $2, subject_id = $3, room_id = $4, status = $5, updated_at = $6
WHERE id = $1`
	if _, err := target.ExecContext(ctx, query, entry.ID, entry.TeacherID, entry.SubjectID, entry.RoomID, entry.Status, entry.UpdatedAt); err != nil {
		return fmt.Errorf("update day entry resources: %w", err)
	}
	return nil
}

// ApproveEntries flips a day's pending entries to approved, optionally for
// one group only, and reports how many changed.
func (r *DayScheduleRepository) ApproveEntries(ctx context.Context, exec sqlx.ExtContext, dayID, groupID string) (int, error) {
	target := r.exec(exec)
	query := `UPDATE day_schedule_entries SET status = $2, updated_at = $3 WHERE day_schedule_id = $1 AND status <> $2`
	args := []interface{}{dayID, models.DayEntryStatusApproved, time.Now().UTC()}
	if groupID != "" {
		args = append(args, groupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	res, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("approve day entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("approve day entries affected: %w", err)
	}
	return int(affected), nil
}

// DeleteNonApprovedEntries wipes a day's rebuildable entries, optionally for
// one group only. Approved entries are never touched.
func (r *DayScheduleRepository) DeleteNonApprovedEntries(ctx context.Context, dayID, groupID string) error {
	query := `DELETE FROM day_schedule_entries WHERE day_schedule_id = $1 AND status <> $2`
	args := []interface{}{dayID, models.DayEntryStatusApproved}
	if groupID != "" {
		args = append(args, groupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete day entries: %w", err)
	}
	return nil
}

// CountApprovedEntries reports how many approved entries a day (or one of its
// groups) already holds.
func (r *DayScheduleRepository) CountApprovedEntries(ctx context.Context, dayID, groupID string) (int, error) {
	query := `SELECT COUNT(*) FROM day_schedule_entries WHERE day_schedule_id = $1 AND status = $2`
	args := []interface{}{dayID, models.DayEntryStatusApproved}
	if groupID != "" {
		args = append(args, groupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count approved day entries: %w", err)
	}
	return count, nil
}

// CountTeacherEntriesAt counts a teacher's day-level bookings at a date and
// start time, excluding one entry for in-place edits.
func (r *DayScheduleRepository) CountTeacherEntriesAt(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string) (int, error) {
	const query = `
SELECT COUNT(*) FROM day_schedule_entries e
JOIN day_schedules d ON d.id = e.day_schedule_id
WHERE d.date = $1 AND e.start_time = $2 AND e.teacher_id = $3 AND e.id <> $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date, start, teacherID, excludeEntryID); err != nil {
		return 0, fmt.Errorf("count teacher entries: %w", err)
	}
	return count, nil
}

// FindGroupEntryAt returns the group's entry at a date and start time, or nil.
func (r *DayScheduleRepository) FindGroupEntryAt(ctx context.Context, groupID string, date time.Time, start string) (*models.DayScheduleEntry, error) {
	query := `
SELECT ` + prefixedDayEntryColumns + ` FROM day_schedule_entries e
JOIN day_schedules d ON d.id = e.day_schedule_id
WHERE d.date = $1 AND e.start_time = $2 AND e.group_id = $3
LIMIT 1`
	var entry models.DayScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, date, start, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find group entry: %w", err)
	}
	return &entry, nil
}

// ListRoomEntriesAt returns the entries occupying a room at a date and start
// time, excluding one entry for in-place edits.
func (r *DayScheduleRepository) ListRoomEntriesAt(ctx context.Context, roomID string, date time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error) {
	query := `
SELECT ` + prefixedDayEntryColumns + ` FROM day_schedule_entries e
JOIN day_schedules d ON d.id = e.day_schedule_id
WHERE d.date = $1 AND e.start_time = $2 AND e.room_id = $3 AND e.id <> $4
ORDER BY e.group_id ASC`
	var entries []models.DayScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, date, start, roomID, excludeEntryID); err != nil {
		return nil, fmt.Errorf("list room entries: %w", err)
	}
	return entries, nil
}

// ListTeacherEntriesAt returns the entries booked for a teacher at a date and
// start time, excluding one entry.
func (r *DayScheduleRepository) ListTeacherEntriesAt(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error) {
	query := `
SELECT ` + prefixedDayEntryColumns + ` FROM day_schedule_entries e
JOIN day_schedules d ON d.id = e.day_schedule_id
WHERE d.date = $1 AND e.start_time = $2 AND e.teacher_id = $3 AND e.id <> $4
ORDER BY e.group_id ASC`
	var entries []models.DayScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, date, start, teacherID, excludeEntryID); err != nil {
		return nil, fmt.Errorf("list teacher entries: %w", err)
	}
	return entries, nil
}

const prefixedDayEntryColumns = `e.id, e.day_schedule_id, e.group_id, e.subject_id, e.teacher_id, e.room_id, e.start_time, e.end_time, e.status, e.schedule_item_id, e.created_at, e.updated_at`
