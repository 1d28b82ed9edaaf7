package dto

import "github.com/almas-dev/college-timetable-api/internal/models"

// NameRequest creates or resolves a dictionary row by name.
type NameRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateRoomRequest creates a room; capacity defaults to 1.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
}

// CreateScheduleItemRequest registers a recurring teaching load by names.
type CreateScheduleItemRequest struct {
	GroupName   string  `json:"group_name" validate:"required"`
	SubjectName string  `json:"subject_name" validate:"required"`
	TeacherName string  `json:"teacher_name" validate:"required"`
	RoomName    string  `json:"room_name" validate:"required"`
	TotalHours  float64 `json:"total_hours" validate:"min=0"`
	WeeklyHours float64 `json:"weekly_hours" validate:"min=0"`
	WeekType    string  `json:"week_type,omitempty"`
}

// ScheduleItemProgress reports taught versus remaining hours for one item.
type ScheduleItemProgress struct {
	Item           *models.ScheduleItem     `json:"item"`
	Records        []models.SubjectProgress `json:"records"`
	HoursTaught    float64                  `json:"hours_taught"`
	HoursRemaining float64                  `json:"hours_remaining"`
}

// CreateLinkRequest binds a teacher to a group and subject for replacement
// lookups.
type CreateLinkRequest struct {
	GroupName   string `json:"group_name" validate:"required"`
	TeacherName string `json:"teacher_name" validate:"required"`
	SubjectName string `json:"subject_name" validate:"required"`
}

// CreatePracticeRequest suppresses scheduling for a group in a date range.
type CreatePracticeRequest struct {
	GroupName string  `json:"group_name" validate:"required"`
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	Name      *string `json:"name,omitempty"`
}

// CreateHolidayRequest suppresses scheduling globally in a date range.
type CreateHolidayRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Name      string `json:"name" validate:"required"`
}
