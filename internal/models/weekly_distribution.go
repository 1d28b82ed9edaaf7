package models

import (
	"encoding/json"
	"time"
)

// GeneratedScheduleStatus is the lifecycle of a semester generation run.
type GeneratedScheduleStatus string

const (
	GeneratedScheduleStatusPending    GeneratedScheduleStatus = "pending"
	GeneratedScheduleStatusInProgress GeneratedScheduleStatus = "in_progress"
	GeneratedScheduleStatusCompleted  GeneratedScheduleStatus = "completed"
	GeneratedScheduleStatusFailed     GeneratedScheduleStatus = "failed"
)

// GeneratedSchedule tracks one group's semester generation run and its job.
type GeneratedSchedule struct {
	ID           string                  `db:"id" json:"id"`
	StartDate    time.Time               `db:"start_date" json:"start_date"`
	EndDate      time.Time               `db:"end_date" json:"end_date"`
	Semester     string                  `db:"semester" json:"semester"`
	GroupID      string                  `db:"group_id" json:"group_id"`
	Status       GeneratedScheduleStatus `db:"status" json:"status"`
	JobID        *string                 `db:"job_id" json:"job_id,omitempty"`
	Stats        json.RawMessage         `db:"stats" json:"stats,omitempty"`
	ErrorMessage *string                 `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time              `db:"completed_at" json:"completed_at,omitempty"`
}

// GenerationStats summarises a finished run; stored as JSON on the record.
type GenerationStats struct {
	TotalPairs    int      `json:"total_pairs"`
	WeeksPlanned  int      `json:"weeks_planned"`
	HoursPlanned  float64  `json:"hours_planned"`
	HoursRemained float64  `json:"hours_remained"`
	Warnings      []string `json:"warnings,omitempty"`
}

// PlacedSlot is one placed lesson-pair inside a weekly distribution.
type PlacedSlot struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// WeeklyDistribution materialises one schedule item's placements for one
// calendar week. Slots is stored as JSON.
type WeeklyDistribution struct {
	ID                  string          `db:"id" json:"id"`
	GeneratedScheduleID *string         `db:"generated_schedule_id" json:"generated_schedule_id,omitempty"`
	ScheduleItemID      string          `db:"schedule_item_id" json:"schedule_item_id"`
	WeekStart           time.Time       `db:"week_start" json:"week_start"`
	WeekEnd             time.Time       `db:"week_end" json:"week_end"`
	IsEvenWeek          bool            `db:"is_even_week" json:"is_even_week"`
	HoursEven           float64         `db:"hours_even" json:"hours_even"`
	HoursOdd            float64         `db:"hours_odd" json:"hours_odd"`
	Slots               json.RawMessage `db:"slots" json:"slots"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// PlacedSlots decodes the JSON slot list; a nil column yields an empty list.
func (w *WeeklyDistribution) PlacedSlots() []PlacedSlot {
	if len(w.Slots) == 0 {
		return nil
	}
	var slots []PlacedSlot
	if err := json.Unmarshal(w.Slots, &slots); err != nil {
		return nil
	}
	return slots
}

// SetPlacedSlots encodes the slot list back onto the record.
func (w *WeeklyDistribution) SetPlacedSlots(slots []PlacedSlot) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	w.Slots = raw
	return nil
}

// HoursThisWeek returns the bucket matching the week's parity.
func (w *WeeklyDistribution) HoursThisWeek() float64 {
	if w.IsEvenWeek {
		return w.HoursEven
	}
	return w.HoursOdd
}

// WeeklyDistributionDetail joins the owning schedule item for planners that
// need resource ids alongside the placed slots.
type WeeklyDistributionDetail struct {
	WeeklyDistribution
	GroupID   string `db:"group_id" json:"group_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	RoomID    string `db:"room_id" json:"room_id"`
}
