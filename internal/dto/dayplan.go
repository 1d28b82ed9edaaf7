package dto

import "github.com/almas-dev/college-timetable-api/internal/models"

// PlanDayRequest drives the day plan builder. FromPlan replays weekly
// distribution slots; otherwise the day is filled from scratch.
type PlanDayRequest struct {
	Date                  string   `json:"date" validate:"required"`
	GroupNames            []string `json:"group_names,omitempty"`
	FromPlan              bool     `json:"from_plan"`
	EnforceNoGaps         bool     `json:"enforce_no_gaps"`
	MaxPairsPerDay        int      `json:"max_pairs_per_day,omitempty" validate:"omitempty,min=1,max=4"`
	IgnoreWeeklyConflicts bool     `json:"ignore_weekly_conflicts"`
	MaxRepeatsPerSubject  int      `json:"max_repeats_per_subject,omitempty" validate:"omitempty,min=1"`
}

// DayPlanResult is the built day plus structured reasons for everything the
// builder skipped or dropped.
type DayPlanResult struct {
	Day     *models.DaySchedule       `json:"day"`
	Entries []models.DayScheduleEntry `json:"entries"`
	Placed  int                       `json:"placed"`
	Skipped int                       `json:"skipped"`
	Reasons []string                  `json:"reasons,omitempty"`
}

// LookupEntriesRequest filters one day's entries by resource names.
type LookupEntriesRequest struct {
	Date        string `json:"date" validate:"required"`
	GroupName   string `json:"group_name,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
}

// ApproveDayRequest locks a day (or one group within it).
type ApproveDayRequest struct {
	GroupName      string `json:"group_name,omitempty"`
	Enforce        bool   `json:"enforce"`
	RecordProgress bool   `json:"record_progress"`
}

// ApproveDayResponse reports what was locked together with the closing
// analysis.
type ApproveDayResponse struct {
	ApprovedCount int                `json:"approved_count"`
	Report        *DayAnalysisReport `json:"report"`
}

// UpdateEntryRequest edits one entry's resources by name. Absent fields are
// left untouched.
type UpdateEntryRequest struct {
	TeacherName *string `json:"teacher_name,omitempty"`
	SubjectName *string `json:"subject_name,omitempty"`
	RoomName    *string `json:"room_name,omitempty"`
}

// BulkUpdateItem addresses one entry either by id or by group and time.
type BulkUpdateItem struct {
	EntryID     string  `json:"entry_id,omitempty"`
	GroupName   string  `json:"group_name,omitempty"`
	StartTime   string  `json:"start_time,omitempty"`
	SubjectName string  `json:"subject_name,omitempty"`
	NewTeacher  *string `json:"new_teacher,omitempty"`
	NewSubject  *string `json:"new_subject,omitempty"`
	NewRoom     *string `json:"new_room,omitempty"`
}

// BulkUpdateRequest applies many entry edits in one call. Each item succeeds
// or fails on its own; DryRun reports outcomes without writing.
type BulkUpdateRequest struct {
	Date   string           `json:"date" validate:"required"`
	Items  []BulkUpdateItem `json:"items" validate:"required,min=1,dive"`
	DryRun bool             `json:"dry_run"`
}

// BulkUpdateItemResult is the per-item outcome of a bulk update.
type BulkUpdateItemResult struct {
	EntryID string `json:"entry_id,omitempty"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// BulkUpdateResponse pairs per-item outcomes with the closing analysis.
type BulkUpdateResponse struct {
	Results []BulkUpdateItemResult `json:"results"`
	Report  *DayAnalysisReport     `json:"report,omitempty"`
}
