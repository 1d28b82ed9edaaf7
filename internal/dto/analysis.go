package dto

// Issue severities.
const (
	IssueLevelBlocker = "blocker"
	IssueLevelWarning = "warning"
)

// Issue codes emitted by the day analyzer.
const (
	IssueTeacherConflict    = "teacher_conflict"
	IssueRoomCapacity       = "room_capacity"
	IssueGroupDuplicateSlot = "group_duplicate_slot"
	IssueUnknownTeacher     = "unknown_teacher"
	IssueRoomMissing        = "room_missing"
	IssueGroupWindows       = "group_windows"
)

// AnalysisIssue is one finding in a day analysis report.
type AnalysisIssue struct {
	Level     string   `json:"level"`
	Code      string   `json:"code"`
	StartTime string   `json:"start_time,omitempty"`
	GroupName string   `json:"group_name,omitempty"`
	Detail    string   `json:"detail"`
	EntryIDs  []string `json:"entry_ids,omitempty"`
}

// GroupDayStats aggregates one group's day for the report.
type GroupDayStats struct {
	GroupName       string `json:"group_name"`
	PlannedPairs    int    `json:"planned_pairs"`
	ApprovedPairs   int    `json:"approved_pairs"`
	PendingPairs    int    `json:"pending_pairs"`
	Windows         int    `json:"windows"`
	DuplicateSlots  int    `json:"duplicate_slots"`
	UnknownTeachers int    `json:"unknown_teachers"`
}

// DayAnalysisReport is the analyzer's full verdict for one day.
type DayAnalysisReport struct {
	DayScheduleID string          `json:"day_schedule_id"`
	Date          string          `json:"date"`
	Issues        []AnalysisIssue `json:"issues"`
	GroupStats    []GroupDayStats `json:"group_stats"`
	BlockerCount  int             `json:"blocker_count"`
	WarningCount  int             `json:"warning_count"`
	CanApprove    bool            `json:"can_approve"`
}
