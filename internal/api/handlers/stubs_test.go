package handlers_test

import (
	"context"
	"time"

	"github.com/zatekoja/datebuch/internal/application/services"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

type stubCatalogue struct {
	venues   map[string]*entities.Venue
	lastQ    services.VenueQuery
	created  []*entities.Venue
	statuses map[string]entities.VenueStatus
	tags     []entities.Tag
	votes    map[string]int
	err      error
}

func newStubCatalogue(venues ...*entities.Venue) *stubCatalogue {
	c := &stubCatalogue{
		venues:   make(map[string]*entities.Venue),
		statuses: make(map[string]entities.VenueStatus),
		votes:    make(map[string]int),
	}
	for _, v := range venues {
		c.venues[v.ID] = v
	}
	return c
}

func (c *stubCatalogue) List(ctx context.Context, q services.VenueQuery) ([]*entities.Venue, error) {
	c.lastQ = q
	if c.err != nil {
		return nil, c.err
	}
	out := []*entities.Venue{}
	for _, v := range c.venues {
		out = append(out, v)
	}
	return out, nil
}

func (c *stubCatalogue) Search(ctx context.Context, text string) (*services.VenueSearchResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	result := &services.VenueSearchResult{
		Intent:  entities.SearchIntent{Query: text, Tags: []string{text}},
		Results: []entities.ScoredVenue{},
	}
	for _, v := range c.venues {
		result.Results = append(result.Results, entities.ScoredVenue{Venue: v, Score: 15, MatchedTag: text})
	}
	return result, nil
}

func (c *stubCatalogue) Get(ctx context.Context, id string) (*entities.Venue, error) {
	v, ok := c.venues[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("venue not found")
	}
	return v, nil
}

func (c *stubCatalogue) Nearby(ctx context.Context, id string, venueType entities.VenueType, radiusKm float64) ([]entities.NearbyVenue, error) {
	if radiusKm < 0 {
		return nil, apperrors.NewValidationError("radius_km must be a non-negative number")
	}
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	out := []entities.NearbyVenue{}
	for _, v := range c.venues {
		if v.ID != id {
			out = append(out, entities.NearbyVenue{Venue: v, DistanceKm: radiusKm / 2})
		}
	}
	return out, nil
}

func (c *stubCatalogue) Create(ctx context.Context, venue *entities.Venue) error {
	if c.err != nil {
		return c.err
	}
	venue.ID = "new-venue"
	venue.Slug = services.Slugify(venue.Name)
	c.created = append(c.created, venue)
	return nil
}

func (c *stubCatalogue) UpdateStatus(ctx context.Context, id string, status entities.VenueStatus) error {
	if _, err := entities.ParseVenueStatus(string(status)); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if _, err := c.Get(ctx, id); err != nil {
		return err
	}
	c.statuses[id] = status
	return nil
}

func (c *stubCatalogue) UpsertTag(ctx context.Context, venueID string, tag *entities.Tag) error {
	if _, err := entities.ParseTagCategory(string(tag.Category)); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if _, err := c.Get(ctx, venueID); err != nil {
		return err
	}
	tag.ID = "tag-1"
	tag.VenueID = venueID
	c.tags = append(c.tags, *tag)
	return nil
}

func (c *stubCatalogue) VoteTag(ctx context.Context, tagID string, up bool) (*entities.Tag, error) {
	if up {
		c.votes[tagID]++
	} else {
		c.votes[tagID]--
	}
	return &entities.Tag{ID: tagID, QualityScore: float64(c.votes[tagID])}, nil
}

func (c *stubCatalogue) PopularTags(ctx context.Context, category string, limit int) ([]entities.Tag, error) {
	if category != "" {
		if _, err := entities.ParseTagCategory(category); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	return c.tags, nil
}

func (c *stubCatalogue) Districts(ctx context.Context) ([]string, error) {
	return []string{"Altona", "St. Pauli"}, nil
}

func (c *stubCatalogue) Favorites(ctx context.Context, scope entities.Scope) ([]*entities.Venue, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return c.List(ctx, services.VenueQuery{})
}

type stubPlanner struct {
	created    []services.CreateDatePlanInput
	suggestion *entities.Suggestion
	plans      map[string]*entities.DatePlan
}

func newStubPlanner() *stubPlanner {
	return &stubPlanner{plans: make(map[string]*entities.DatePlan)}
}

func (p *stubPlanner) Create(ctx context.Context, input services.CreateDatePlanInput) (*entities.DatePlan, error) {
	if err := input.Scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	p.created = append(p.created, input)
	plan := &entities.DatePlan{
		ID:          "plan-1",
		UserID:      input.Scope.UserID,
		CoupleID:    input.Scope.CoupleID,
		Title:       input.Title,
		PlannedDate: input.PlannedDate,
		Status:      entities.DatePlanStatusDraft,
	}
	p.plans[plan.ID] = plan
	return plan, nil
}

func (p *stubPlanner) CreateFromSuggestion(ctx context.Context, scope entities.Scope, suggestion *entities.Suggestion, title string, plannedDate *time.Time) (*entities.DatePlan, error) {
	if suggestion.IsEmpty() {
		return nil, apperrors.NewValidationError("suggestion has no venues")
	}
	p.suggestion = suggestion
	return p.Create(ctx, services.CreateDatePlanInput{Scope: scope, Title: title, PlannedDate: plannedDate, Reason: suggestion.Reason})
}

func (p *stubPlanner) Get(ctx context.Context, id string) (*entities.DatePlan, error) {
	plan, ok := p.plans[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("date plan not found")
	}
	return plan, nil
}

func (p *stubPlanner) List(ctx context.Context, scope entities.Scope) ([]*entities.DatePlan, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	out := []*entities.DatePlan{}
	for _, plan := range p.plans {
		out = append(out, plan)
	}
	return out, nil
}

func (p *stubPlanner) UpdateStatus(ctx context.Context, id string, status entities.DatePlanStatus, rating *int) (*entities.DatePlan, error) {
	plan, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == entities.DatePlanStatusCompleted {
		return nil, apperrors.NewConflictError("date plan is already completed")
	}
	plan.Status = status
	plan.Rating = rating
	return plan, nil
}

func (p *stubPlanner) Visited(ctx context.Context, scope entities.Scope) ([]*entities.Venue, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return []*entities.Venue{{ID: "r1", Name: "Trattoria Luna"}}, nil
}

func hamburgVenues() []*entities.Venue {
	return []*entities.Venue{
		{
			ID: "r1", Name: "Trattoria Luna", Type: entities.VenueTypeRestaurant, District: "Altona",
			Status: entities.VenueStatusActive,
			Tags:   []entities.Tag{{Category: entities.TagCategoryFood, Label: "Carbonara", QualityScore: 5, IsSpecialty: true}},
		},
		{
			ID: "b1", Name: "Kaminbar", Type: entities.VenueTypeBar, District: "St. Pauli",
			Status: entities.VenueStatusActive,
			Tags:   []entities.Tag{{Category: entities.TagCategoryVibe, Label: "Gemütlich", QualityScore: 3}},
		},
	}
}
