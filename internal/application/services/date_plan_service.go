package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

const defaultPlanTitle = "Date"

// planTransitions lists the statuses reachable from each status.
// Completed and cancelled plans are final.
var planTransitions = map[entities.DatePlanStatus][]entities.DatePlanStatus{
	entities.DatePlanStatusDraft:   {entities.DatePlanStatusPlanned, entities.DatePlanStatusCompleted, entities.DatePlanStatusCancelled},
	entities.DatePlanStatusPlanned: {entities.DatePlanStatusDraft, entities.DatePlanStatusCompleted, entities.DatePlanStatusCancelled},
}

// PlanItemInput references one venue of a new plan
type PlanItemInput struct {
	VenueID string
	Slot    entities.PlanSlot
}

// CreateDatePlanInput holds the fields of a new plan
type CreateDatePlanInput struct {
	Scope       entities.Scope
	Title       string
	PlannedDate *time.Time
	Occasion    string
	Reason      string
	Items       []PlanItemInput
}

// DatePlanService manages date plans of users and couples
type DatePlanService struct {
	plans  repositories.DatePlanRepository
	venues repositories.VenueRepository
}

// NewDatePlanService creates a new date plan service
func NewDatePlanService(plans repositories.DatePlanRepository, venues repositories.VenueRepository) *DatePlanService {
	return &DatePlanService{plans: plans, venues: venues}
}

// Create stores a draft plan of up to three venues, one per slot
func (s *DatePlanService) Create(ctx context.Context, input CreateDatePlanInput) (*entities.DatePlan, error) {
	if err := input.Scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if len(input.Items) == 0 {
		return nil, apperrors.NewValidationError("a date plan needs at least one venue")
	}
	if len(input.Items) > entities.MaxPlanItems {
		return nil, apperrors.NewValidationError(fmt.Sprintf("a date plan holds at most %d venues", entities.MaxPlanItems))
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = defaultPlanTitle
	}

	plan := &entities.DatePlan{
		ScopeKey:    input.Scope.Key(),
		UserID:      input.Scope.UserID,
		CoupleID:    input.Scope.CoupleID,
		Title:       title,
		PlannedDate: input.PlannedDate,
		Occasion:    strings.TrimSpace(input.Occasion),
		Reason:      input.Reason,
		Status:      entities.DatePlanStatusDraft,
	}

	seen := make(map[entities.PlanSlot]bool, len(input.Items))
	for i, item := range input.Items {
		slot, err := entities.ParsePlanSlot(string(item.Slot))
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		if seen[slot] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("slot %q is used twice", slot))
		}
		seen[slot] = true

		venue, err := s.venues.GetByID(ctx, item.VenueID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewValidationError(fmt.Sprintf("venue %q does not exist", item.VenueID))
			}
			return nil, err
		}
		plan.Items = append(plan.Items, entities.DatePlanItem{
			VenueID:    venue.ID,
			Slot:       slot,
			OrderIndex: i,
			Venue:      venue,
		})
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("plan_id", plan.ID).
		Str("scope", plan.ScopeKey).
		Int("items", len(plan.Items)).
		Msg("Date plan created")

	return plan, nil
}

// CreateFromSuggestion turns the filled slots of a suggestion into a draft
// plan in the order food, activity, drinks
func (s *DatePlanService) CreateFromSuggestion(ctx context.Context, scope entities.Scope, suggestion *entities.Suggestion, title string, plannedDate *time.Time) (*entities.DatePlan, error) {
	if suggestion == nil || suggestion.IsEmpty() {
		return nil, apperrors.NewValidationError("suggestion has no venues")
	}

	input := CreateDatePlanInput{
		Scope:       scope,
		Title:       title,
		PlannedDate: plannedDate,
		Reason:      suggestion.Reason,
	}
	slots := []struct {
		venue *entities.Venue
		slot  entities.PlanSlot
	}{
		{suggestion.Restaurant, entities.PlanSlotFood},
		{suggestion.Activity, entities.PlanSlotActivity},
		{suggestion.Bar, entities.PlanSlotDrinks},
	}
	for _, sl := range slots {
		if sl.venue != nil {
			input.Items = append(input.Items, PlanItemInput{VenueID: sl.venue.ID, Slot: sl.slot})
		}
	}
	return s.Create(ctx, input)
}

// Get retrieves a plan with its venues
func (s *DatePlanService) Get(ctx context.Context, id string) (*entities.DatePlan, error) {
	return s.plans.GetByID(ctx, id)
}

// List returns the plans of scope, newest first
func (s *DatePlanService) List(ctx context.Context, scope entities.Scope) ([]*entities.DatePlan, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.plans.ListByScope(ctx, scope)
}

// UpdateStatus moves a plan along its lifecycle. A rating is accepted only
// together with the transition to completed.
func (s *DatePlanService) UpdateStatus(ctx context.Context, id string, status entities.DatePlanStatus, rating *int) (*entities.DatePlan, error) {
	if _, err := entities.ParseDatePlanStatus(string(status)); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if rating != nil {
		if status != entities.DatePlanStatusCompleted {
			return nil, apperrors.NewValidationError("a rating can only be given when completing a plan")
		}
		if *rating < 1 || *rating > 5 {
			return nil, apperrors.NewValidationError("rating must be between 1 and 5")
		}
	}

	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(plan.Status, status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move plan from %s to %s", plan.Status, status))
	}

	if err := s.plans.UpdateStatus(ctx, id, status, rating); err != nil {
		return nil, err
	}
	plan.Status = status
	plan.Rating = rating

	observability.LoggerFromContext(ctx).Info().
		Str("plan_id", id).
		Str("status", string(status)).
		Msg("Date plan status updated")

	return plan, nil
}

// Visited returns the distinct venues of the scope's completed plans
func (s *DatePlanService) Visited(ctx context.Context, scope entities.Scope) ([]*entities.Venue, error) {
	plans, err := s.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	venues := []*entities.Venue{}
	for _, plan := range plans {
		if plan.Status != entities.DatePlanStatusCompleted {
			continue
		}
		for _, item := range plan.Items {
			if item.Venue == nil || seen[item.VenueID] {
				continue
			}
			seen[item.VenueID] = true
			venues = append(venues, item.Venue)
		}
	}
	return venues, nil
}

func canTransition(from, to entities.DatePlanStatus) bool {
	for _, next := range planTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
