package models

import "time"

// DayScheduleStatus is the approval state of a whole day.
type DayScheduleStatus string

const (
	DayScheduleStatusPending  DayScheduleStatus = "pending"
	DayScheduleStatusApproved DayScheduleStatus = "approved"
)

// DayEntryStatus is the lifecycle of a single placed lesson.
type DayEntryStatus string

const (
	DayEntryStatusPending        DayEntryStatus = "pending"
	DayEntryStatusApproved       DayEntryStatus = "approved"
	DayEntryStatusReplacedManual DayEntryStatus = "replaced_manual"
	DayEntryStatusReplacedAuto   DayEntryStatus = "replaced_auto"
)

// DaySchedule is the concrete plan for one calendar date. Once approved it is
// immutable as a whole.
type DaySchedule struct {
	ID        string            `db:"id" json:"id"`
	Date      time.Time         `db:"date" json:"date"`
	Status    DayScheduleStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// DayScheduleEntry is one lesson placed on a concrete date and slot. Teacher
// and room are nullable: an absent reference means the resource is not yet
// assigned.
type DayScheduleEntry struct {
	ID             string         `db:"id" json:"id"`
	DayScheduleID  string         `db:"day_schedule_id" json:"day_schedule_id"`
	GroupID        string         `db:"group_id" json:"group_id"`
	SubjectID      string         `db:"subject_id" json:"subject_id"`
	TeacherID      *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID         *string        `db:"room_id" json:"room_id,omitempty"`
	StartTime      string         `db:"start_time" json:"start_time"`
	EndTime        string         `db:"end_time" json:"end_time"`
	Status         DayEntryStatus `db:"status" json:"status"`
	ScheduleItemID *string        `db:"schedule_item_id" json:"schedule_item_id,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// DayEntryFilter narrows entry lookups within one day schedule.
type DayEntryFilter struct {
	GroupID   string
	TeacherID string
	RoomID    string
	SubjectID string
	StartTime string
}

// Practice suppresses scheduling for a group within a date range.
type Practice struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Name      *string   `db:"name" json:"name,omitempty"`
}

// Holiday suppresses scheduling globally within a date range.
type Holiday struct {
	ID        string    `db:"id" json:"id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Name      string    `db:"name" json:"name"`
}

// Covers reports whether the holiday range includes the date.
func (h Holiday) Covers(d time.Time) bool {
	return !d.Before(h.StartDate) && !d.After(h.EndDate)
}

// SubjectProgress records consumed academic hours for a schedule item, one
// row per approved day entry.
type SubjectProgress struct {
	ID             string    `db:"id" json:"id"`
	ScheduleItemID string    `db:"schedule_item_id" json:"schedule_item_id"`
	Date           time.Time `db:"date" json:"date"`
	Hours          float64   `db:"hours" json:"hours"`
	Note           *string   `db:"note" json:"note,omitempty"`
}
