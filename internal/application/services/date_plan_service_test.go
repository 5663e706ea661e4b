package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

func intPtr(v int) *int { return &v }

func newTestDatePlanService() (*DatePlanService, *memoryDatePlanRepo) {
	plans := &memoryDatePlanRepo{}
	return NewDatePlanService(plans, suggestionCatalogue()), plans
}

func TestDatePlanService_Create(t *testing.T) {
	svc, _ := newTestDatePlanService()
	scope := entities.CoupleScope("c1")

	plan, err := svc.Create(context.Background(), CreateDatePlanInput{
		Scope:    scope,
		Occasion: " Jahrestag ",
		Items: []PlanItemInput{
			{VenueID: "r1", Slot: entities.PlanSlotFood},
			{VenueID: "b1", Slot: entities.PlanSlotDrinks},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "Date", plan.Title)
	assert.Equal(t, "Jahrestag", plan.Occasion)
	assert.Equal(t, entities.DatePlanStatusDraft, plan.Status)
	assert.Equal(t, "couple:c1", plan.ScopeKey)
	require.Len(t, plan.Items, 2)
	assert.Equal(t, 1, plan.Items[1].OrderIndex)
	assert.Equal(t, "Kaminbar", plan.Items[1].Venue.Name)
}

func TestDatePlanService_CreateValidation(t *testing.T) {
	svc, _ := newTestDatePlanService()
	scope := entities.UserScope("u1")
	food := PlanItemInput{VenueID: "r1", Slot: entities.PlanSlotFood}

	tests := []struct {
		name  string
		input CreateDatePlanInput
	}{
		{"no scope", CreateDatePlanInput{Items: []PlanItemInput{food}}},
		{"no items", CreateDatePlanInput{Scope: scope}},
		{"too many items", CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{
			food,
			{VenueID: "b1", Slot: entities.PlanSlotDrinks},
			{VenueID: "a1", Slot: entities.PlanSlotActivity},
			{VenueID: "r2", Slot: entities.PlanSlotFood},
		}}},
		{"unknown slot", CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{{VenueID: "r1", Slot: "dessert"}}}},
		{"slot twice", CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{food, {VenueID: "r2", Slot: entities.PlanSlotFood}}}},
		{"unknown venue", CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{{VenueID: "nope", Slot: entities.PlanSlotFood}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestDatePlanService_CreateFromSuggestion(t *testing.T) {
	svc, _ := newTestDatePlanService()
	suggestion, err := NewSuggestionService(suggestionCatalogue(), firstPicker{}).
		Suggest(context.Background(), entities.DateContext{DayOfWeek: 6, Hour: 19, Weather: &entities.WeatherContext{Temp: 3}})
	require.NoError(t, err)

	plan, err := svc.CreateFromSuggestion(context.Background(), entities.UserScope("u1"), suggestion, "Samstag", nil)
	require.NoError(t, err)

	require.Len(t, plan.Items, 3)
	assert.Equal(t, entities.PlanSlotFood, plan.Items[0].Slot)
	assert.Equal(t, entities.PlanSlotActivity, plan.Items[1].Slot)
	assert.Equal(t, entities.PlanSlotDrinks, plan.Items[2].Slot)
	assert.Equal(t, suggestion.Reason, plan.Reason)

	_, err = svc.CreateFromSuggestion(context.Background(), entities.UserScope("u1"), &entities.Suggestion{}, "", nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDatePlanService_StatusLifecycle(t *testing.T) {
	svc, _ := newTestDatePlanService()
	ctx := context.Background()
	scope := entities.UserScope("u1")

	plan, err := svc.Create(ctx, CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{{VenueID: "r1", Slot: entities.PlanSlotFood}}})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, plan.ID, entities.DatePlanStatusPlanned, intPtr(4))
	assert.True(t, apperrors.IsValidation(err), "rating before completion")

	_, err = svc.UpdateStatus(ctx, plan.ID, entities.DatePlanStatusPlanned, nil)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, plan.ID, entities.DatePlanStatusCompleted, intPtr(6))
	assert.True(t, apperrors.IsValidation(err))

	done, err := svc.UpdateStatus(ctx, plan.ID, entities.DatePlanStatusCompleted, intPtr(5))
	require.NoError(t, err)
	assert.Equal(t, entities.DatePlanStatusCompleted, done.Status)
	require.NotNil(t, done.Rating)
	assert.Equal(t, 5, *done.Rating)

	_, err = svc.UpdateStatus(ctx, plan.ID, entities.DatePlanStatusDraft, nil)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))

	_, err = svc.UpdateStatus(ctx, plan.ID, "archived", nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.UpdateStatus(ctx, "missing", entities.DatePlanStatusPlanned, nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDatePlanService_FinalStatusesRejectTransitions(t *testing.T) {
	svc, _ := newTestDatePlanService()
	ctx := context.Background()
	scope := entities.CoupleScope("c1")

	cancelled, err := svc.Create(ctx, CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{{VenueID: "r1", Slot: entities.PlanSlotFood}}})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, cancelled.ID, entities.DatePlanStatusCancelled, nil)
	require.NoError(t, err)

	for _, next := range []entities.DatePlanStatus{
		entities.DatePlanStatusDraft,
		entities.DatePlanStatusPlanned,
		entities.DatePlanStatusCompleted,
		entities.DatePlanStatusCancelled,
	} {
		_, err = svc.UpdateStatus(ctx, cancelled.ID, next, nil)
		assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err), "cancelled -> %s", next)
	}

	completed, err := svc.Create(ctx, CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{{VenueID: "b1", Slot: entities.PlanSlotDrinks}}})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, completed.ID, entities.DatePlanStatusCompleted, intPtr(4))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, completed.ID, entities.DatePlanStatusCancelled, nil)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))

	_, err = svc.UpdateStatus(ctx, completed.ID, entities.DatePlanStatusCompleted, intPtr(5))
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
}

func TestDatePlanService_ListAndVisited(t *testing.T) {
	svc, _ := newTestDatePlanService()
	ctx := context.Background()
	scope := entities.CoupleScope("c1")

	first, err := svc.Create(ctx, CreateDatePlanInput{Scope: scope, Title: "Erstes Date", Items: []PlanItemInput{
		{VenueID: "r1", Slot: entities.PlanSlotFood},
		{VenueID: "b1", Slot: entities.PlanSlotDrinks},
	}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateDatePlanInput{Scope: scope, Items: []PlanItemInput{{VenueID: "a1", Slot: entities.PlanSlotActivity}}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateDatePlanInput{Scope: entities.UserScope("u9"), Items: []PlanItemInput{{VenueID: "a1", Slot: entities.PlanSlotActivity}}})
	require.NoError(t, err)

	plans, err := svc.List(ctx, scope)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Erstes Date", plans[1].Title)

	_, err = svc.UpdateStatus(ctx, first.ID, entities.DatePlanStatusCompleted, nil)
	require.NoError(t, err)

	visited, err := svc.Visited(ctx, scope)
	require.NoError(t, err)
	require.Len(t, visited, 2)
	assert.Equal(t, "r1", visited[0].ID)
	assert.Equal(t, "b1", visited[1].ID)
}
