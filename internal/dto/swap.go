package dto

import "github.com/almas-dev/college-timetable-api/internal/models"

// Resource kinds moved by the swap planner.
const (
	SwapResourceRoom    = "room"
	SwapResourceTeacher = "teacher"
)

// SwapAlternative is one free resource an occupant could move to.
type SwapAlternative struct {
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
}

// SwapConflict is one entry currently occupying the desired resource,
// together with where it could go instead.
type SwapConflict struct {
	Entry        models.DayScheduleEntry `json:"entry"`
	Alternatives []SwapAlternative       `json:"alternatives"`
}

// SwapPlan is the planner's proposal for freeing a desired resource.
type SwapPlan struct {
	EntryID        string         `json:"entry_id"`
	Resource       string         `json:"resource"`
	DesiredID      string         `json:"desired_id"`
	DesiredName    string         `json:"desired_name"`
	IsFree         bool           `json:"is_free"`
	Conflicts      []SwapConflict `json:"conflicts,omitempty"`
	CanAutoResolve bool           `json:"can_auto_resolve"`
}

// ResourceChange is one reassignment in a swap change-set. OldID is nil when
// the entry had no resource assigned.
type ResourceChange struct {
	EntryID  string  `json:"entry_id"`
	Resource string  `json:"resource"`
	OldID    *string `json:"old_id,omitempty"`
	NewID    string  `json:"new_id"`
}

// ExecuteSwapRequest applies (or dry-runs) a swap for one entry. Choices maps
// occupant entry ids to the caller-picked alternative resource id.
type ExecuteSwapRequest struct {
	EntryID      string            `json:"entry_id" validate:"required"`
	ResourceName string            `json:"resource_name" validate:"required"`
	Choices      map[string]string `json:"choices,omitempty"`
	DryRun       bool              `json:"dry_run"`
}

// SwapResult is the executed (or simulated) change-set.
type SwapResult struct {
	Applied bool             `json:"applied"`
	Changes []ResourceChange `json:"changes"`
}

// ReplaceTeacherRequest reassigns one entry to a named teacher.
type ReplaceTeacherRequest struct {
	TeacherName string `json:"teacher_name" validate:"required"`
}

// ReplaceVacantResponse summarises an automatic vacant-teacher sweep.
type ReplaceVacantResponse struct {
	Replaced int                `json:"replaced"`
	Unfilled int                `json:"unfilled"`
	Reasons  []string           `json:"reasons,omitempty"`
	Report   *DayAnalysisReport `json:"report,omitempty"`
}
