package models

import "time"

// WeekType classifies how a schedule item's weekly hours lean across the
// even/odd calendar-week alternation.
type WeekType string

const (
	WeekTypeBalanced     WeekType = "balanced"
	WeekTypeEvenPriority WeekType = "even_priority"
	WeekTypeOddPriority  WeekType = "odd_priority"
)

// Valid reports whether the value is one of the known week types.
func (w WeekType) Valid() bool {
	switch w {
	case WeekTypeBalanced, WeekTypeEvenPriority, WeekTypeOddPriority:
		return true
	}
	return false
}

// ScheduleItem is a recurring teaching load: group × subject × teacher × room
// with an hour quota to be spread over the term.
type ScheduleItem struct {
	ID           string    `db:"id" json:"id"`
	GroupID      string    `db:"group_id" json:"group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	TotalHours   float64   `db:"total_hours" json:"total_hours"`
	WeeklyHours  float64   `db:"weekly_hours" json:"weekly_hours"`
	WeekType     WeekType  `db:"week_type" json:"week_type"`
	TeacherSlots int       `db:"teacher_slots" json:"teacher_slots"`
	RoomSlots    int       `db:"room_slots" json:"room_slots"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleItemTeacher assigns an extra teacher to an item. SlotNumber orders
// co-teachers; the primary one mirrors ScheduleItem.TeacherID.
type ScheduleItemTeacher struct {
	ID             string `db:"id" json:"id"`
	ScheduleItemID string `db:"schedule_item_id" json:"schedule_item_id"`
	TeacherID      string `db:"teacher_id" json:"teacher_id"`
	SlotNumber     int    `db:"slot_number" json:"slot_number"`
	IsPrimary      bool   `db:"is_primary" json:"is_primary"`
}

// ScheduleItemDetail enriches an item with dictionary names for API views.
type ScheduleItemDetail struct {
	ScheduleItem
	GroupName    string `db:"group_name" json:"group_name"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	RoomName     string `db:"room_name" json:"room_name"`
	RoomCapacity int    `db:"room_capacity" json:"room_capacity"`
}
