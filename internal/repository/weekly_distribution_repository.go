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

// WeeklyDistributionRepository manages materialized weekly placements.
type WeeklyDistributionRepository struct {
	db *sqlx.DB
}

// NewWeeklyDistributionRepository builds repository.
func NewWeeklyDistributionRepository(db *sqlx.DB) *WeeklyDistributionRepository {
	return &WeeklyDistributionRepository{db: db}
}

const weeklyDistributionColumns = `id, generated_schedule_id, schedule_item_id, week_start, week_end, is_even_week, hours_even, hours_odd, slots, created_at`

const weeklyDistributionDetailQuery = `
SELECT wd.id, wd.generated_schedule_id, wd.schedule_item_id, wd.week_start, wd.week_end,
       wd.is_even_week, wd.hours_even, wd.hours_odd, wd.slots, wd.created_at,
       si.group_id, si.subject_id, si.teacher_id, si.room_id
FROM weekly_distributions wd
JOIN schedule_items si ON si.id = wd.schedule_item_id`

// Create inserts a distribution, assigning an id.
func (r *WeeklyDistributionRepository) Create(ctx context.Context, dist *models.WeeklyDistribution) error {
	if dist.ID == "" {
		dist.ID = uuid.NewString()
	}
	if dist.CreatedAt.IsZero() {
		dist.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO weekly_distributions (id, generated_schedule_id, schedule_item_id, week_start, week_end, is_even_week, hours_even, hours_odd, slots, created_at)
VALUES (:id, :generated_schedule_id, :schedule_item_id, :week_start, :week_end, :is_even_week, :hours_even, :hours_odd, :slots, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dist); err != nil {
		return fmt.Errorf("create weekly distribution: %w", err)
	}
	return nil
}

// FindByItemAndWeek returns the distribution for one item/week, or nil.
func (r *WeeklyDistributionRepository) FindByItemAndWeek(ctx context.Context, itemID string, weekStart time.Time) (*models.WeeklyDistribution, error) {
	query := `SELECT ` + weeklyDistributionColumns + ` FROM weekly_distributions WHERE schedule_item_id = $1 AND week_start = $2`
	var dist models.WeeklyDistribution
	if err := r.db.GetContext(ctx, &dist, query, itemID, weekStart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find weekly distribution: %w", err)
	}
	return &dist, nil
}

// DeleteByItemAndWeek removes the distribution before regeneration.
func (r *WeeklyDistributionRepository) DeleteByItemAndWeek(ctx context.Context, itemID string, weekStart time.Time) error {
	const query = `DELETE FROM weekly_distributions WHERE schedule_item_id = $1 AND week_start = $2`
	if _, err := r.db.ExecContext(ctx, query, itemID, weekStart); err != nil {
		return fmt.Errorf("delete weekly distribution: %w", err)
	}
	return nil
}

// ListDetailByWeekRange returns distributions joined with item resources for
// every week starting within [from, to]. The generator seeds its occupancy
// snapshot from this window.
func (r *WeeklyDistributionRepository) ListDetailByWeekRange(ctx context.Context, from, to time.Time) ([]models.WeeklyDistributionDetail, error) {
	query := weeklyDistributionDetailQuery + ` WHERE wd.week_start >= $1 AND wd.week_start <= $2 ORDER BY wd.week_start ASC, wd.created_at ASC`
	var dists []models.WeeklyDistributionDetail
	if err := r.db.SelectContext(ctx, &dists, query, from, to); err != nil {
		return nil, fmt.Errorf("list weekly distributions by range: %w", err)
	}
	return dists, nil
}

// ListDetailByWeek returns one week's distributions with item resources.
func (r *WeeklyDistributionRepository) ListDetailByWeek(ctx context.Context, weekStart time.Time) ([]models.WeeklyDistributionDetail, error) {
	query := weeklyDistributionDetailQuery + ` WHERE wd.week_start = $1 ORDER BY wd.created_at ASC`
	var dists []models.WeeklyDistributionDetail
	if err := r.db.SelectContext(ctx, &dists, query, weekStart); err != nil {
		return nil, fmt.Errorf("list weekly distributions by week: %w", err)
	}
	return dists, nil
}

// ListDetailByWeekAndGroup narrows one week's distributions to a group.
func (r *WeeklyDistributionRepository) ListDetailByWeekAndGroup(ctx context.Context, weekStart time.Time, groupID string) ([]models.WeeklyDistributionDetail, error) {
	query := weeklyDistributionDetailQuery + ` WHERE wd.week_start = $1 AND si.group_id = $2 ORDER BY wd.created_at ASC`
	var dists []models.WeeklyDistributionDetail
	if err := r.db.SelectContext(ctx, &dists, query, weekStart, groupID); err != nil {
		return nil, fmt.Errorf("list weekly distributions by group: %w", err)
	}
	return dists, nil
}

// ListDetailByWeekAndTeacher narrows one week's distributions to a teacher.
func (r *WeeklyDistributionRepository) ListDetailByWeekAndTeacher(ctx context.Context, weekStart time.Time, teacherID string) ([]models.WeeklyDistributionDetail, error) {
	query := weeklyDistributionDetailQuery + ` WHERE wd.week_start = $1 AND si.teacher_id = $2 ORDER BY wd.created_at ASC`
	var dists []models.WeeklyDistributionDetail
	if err := r.db.SelectContext(ctx, &dists, query, weekStart, teacherID); err != nil {
		return nil, fmt.Errorf("list weekly distributions by teacher: %w", err)
	}
	return dists, nil
}
