package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// LinkRepository manages group-teacher-subject bindings used for replacement
// lookups and subject re-alignment.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository builds repository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a link, assigning an id.
func (r *LinkRepository) Create(ctx context.Context, link *models.GroupTeacherSubject) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	const query = `INSERT INTO group_teacher_subjects (id, group_id, teacher_id, subject_id) VALUES (:id, :group_id, :teacher_id, :subject_id)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("create group teacher subject link: %w", err)
	}
	return nil
}

// ListByGroup returns a group's links ordered by teacher id for deterministic
// substitute scans.
func (r *LinkRepository) ListByGroup(ctx context.Context, groupID string) ([]models.GroupTeacherSubject, error) {
	const query = `SELECT id, group_id, teacher_id, subject_id FROM group_teacher_subjects WHERE group_id = $1 ORDER BY teacher_id ASC, subject_id ASC`
	var links []models.GroupTeacherSubject
	if err := r.db.SelectContext(ctx, &links, query, groupID); err != nil {
		return nil, fmt.Errorf("list links by group: %w", err)
	}
	return links, nil
}

// ListByGroupAndTeacher returns the subjects a teacher carries for a group.
func (r *LinkRepository) ListByGroupAndTeacher(ctx context.Context, groupID, teacherID string) ([]models.GroupTeacherSubject, error) {
	const query = `SELECT id, group_id, teacher_id, subject_id FROM group_teacher_subjects WHERE group_id = $1 AND teacher_id = $2 ORDER BY subject_id ASC`
	var links []models.GroupTeacherSubject
	if err := r.db.SelectContext(ctx, &links, query, groupID, teacherID); err != nil {
		return nil, fmt.Errorf("list links by group and teacher: %w", err)
	}
	return links, nil
}

// Delete removes one link.
func (r *LinkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM group_teacher_subjects WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}
