package entities

import (
	"fmt"
	"strings"
	"time"
)

// DatePlanStatus is the lifecycle state of a date plan.
type DatePlanStatus string

const (
	DatePlanStatusDraft     DatePlanStatus = "draft"
	DatePlanStatusPlanned   DatePlanStatus = "planned"
	DatePlanStatusCompleted DatePlanStatus = "completed"
	DatePlanStatusCancelled DatePlanStatus = "cancelled"
)

// ParseDatePlanStatus validates a plan status string.
func ParseDatePlanStatus(raw string) (DatePlanStatus, error) {
	switch s := DatePlanStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case DatePlanStatusDraft, DatePlanStatusPlanned, DatePlanStatusCompleted, DatePlanStatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown date plan status %q", raw)
}

// PlanSlot is the role of a venue within a date plan.
type PlanSlot string

const (
	PlanSlotFood     PlanSlot = "food"
	PlanSlotActivity PlanSlot = "activity"
	PlanSlotDrinks   PlanSlot = "drinks"
)

// ParsePlanSlot validates a plan slot string.
func ParsePlanSlot(raw string) (PlanSlot, error) {
	switch s := PlanSlot(strings.ToLower(strings.TrimSpace(raw))); s {
	case PlanSlotFood, PlanSlotActivity, PlanSlotDrinks:
		return s, nil
	}
	return "", fmt.Errorf("unknown plan slot %q", raw)
}

// MaxPlanItems is the number of slots in a plan.
const MaxPlanItems = 3

// DatePlanItem references one venue of a plan.
type DatePlanItem struct {
	DatePlanID string   `json:"date_plan_id" db:"date_plan_id"`
	VenueID    string   `json:"venue_id" db:"venue_id"`
	Slot       PlanSlot `json:"slot" db:"slot"`
	OrderIndex int      `json:"order_index" db:"order_index"`
	Venue      *Venue   `json:"venue,omitempty" db:"-"`
}

// DatePlan is a proposed or accepted sequence of up to three venues.
type DatePlan struct {
	ID          string         `json:"id" db:"id"`
	ScopeKey    string         `json:"-" db:"scope_key"`
	UserID      string         `json:"user_id,omitempty" db:"user_id"`
	CoupleID    string         `json:"couple_id,omitempty" db:"couple_id"`
	Title       string         `json:"title" db:"title"`
	PlannedDate *time.Time     `json:"planned_date,omitempty" db:"planned_date"`
	Occasion    string         `json:"occasion,omitempty" db:"occasion"`
	Reason      string         `json:"reason,omitempty" db:"reason"`
	Status      DatePlanStatus `json:"status" db:"status"`
	Rating      *int           `json:"rating,omitempty" db:"rating"`
	Items       []DatePlanItem `json:"items,omitempty" db:"-"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}
