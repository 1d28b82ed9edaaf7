package dto

import (
	"time"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// GenerateWeekRequest asks the generator to place one schedule item's weekly
// quota into a concrete week.
type GenerateWeekRequest struct {
	ScheduleItemID string   `json:"schedule_item_id" validate:"required"`
	WeekStart      string   `json:"week_start" validate:"required"`
	PreferredDays  []string `json:"preferred_days,omitempty"`
	MaxPairsPerDay int      `json:"max_pairs_per_day,omitempty" validate:"omitempty,min=1,max=4"`
}

// GenerateWeekResponse carries the stored distribution plus the reasons for
// any pairs the generator could not place.
type GenerateWeekResponse struct {
	Distribution *models.WeeklyDistribution `json:"distribution"`
	PlacedPairs  int                        `json:"placed_pairs"`
	WantedPairs  int                        `json:"wanted_pairs"`
	Reasons      []string                   `json:"reasons,omitempty"`
}

// GenerateSemesterRequest starts an asynchronous generation run over a date
// range for one group.
type GenerateSemesterRequest struct {
	GroupID   string `json:"group_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Semester  string `json:"semester" validate:"required"`
}

// GenerateSemesterResponse acknowledges the queued run.
type GenerateSemesterResponse struct {
	GeneratedScheduleID string                         `json:"generated_schedule_id"`
	JobID               string                         `json:"job_id"`
	Status              models.GeneratedScheduleStatus `json:"status"`
	QueuedAt            time.Time                      `json:"queued_at"`
}
