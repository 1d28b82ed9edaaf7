package models

import (
	"strings"
	"time"
)

// Group is a student cohort, e.g. "ПО-21". The numeral after the dash encodes
// the course and therefore the shift the group studies in.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject is a taught discipline.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Teacher is a member of staff that can be assigned to lessons.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Room is a physical auditorium. Capacity counts how many simultaneous
// lessons it admits: 1 for a normal room, more for shared halls such as the
// gymnasium.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SharedRoom reports whether more than one lesson may run in the room at once.
func (r *Room) SharedRoom() bool {
	return r != nil && r.Capacity > 1
}

// GroupTeacherSubject links a teacher to a group for a subject; replacements
// consult it to pick substitutes and to re-align subjects.
type GroupTeacherSubject struct {
	ID        string `db:"id" json:"id"`
	GroupID   string `db:"group_id" json:"group_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// IsPlaceholderTeacherName reports whether a legacy teacher name is a stand-in
// for "not assigned". Imported datasets used vacant/unknown markers in both
// Russian and English.
func IsPlaceholderTeacherName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	for _, sub := range []string{"vacan", "unknown", "неизвест", "вакан"} {
		if strings.Contains(n, sub) {
			return true
		}
	}
	return false
}

// IsPlaceholderRoomName reports whether a room name is a stand-in for "no
// room assigned". Imports wrote "Unknown" or "без аудитории" where the
// source sheet had no room.
func IsPlaceholderRoomName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	for _, sub := range []string{"без ауд", "unknown", "неизвест", "no room"} {
		if strings.Contains(n, sub) {
			return true
		}
	}
	return false
}
