package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

var datePlanColumns = []interface{}{
	"id", "scope_key",
	goqu.L("COALESCE(user_id, '')").As("user_id"),
	goqu.L("COALESCE(couple_id, '')").As("couple_id"),
	"title", "planned_date", "occasion", "reason", "status", "rating",
	"created_at", "updated_at",
}

// DatePlanAdapter implements the DatePlanRepository interface
type DatePlanAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	venues *VenueAdapter
}

// NewDatePlanAdapter creates a new date plan adapter
func NewDatePlanAdapter(client *postgres.Client) repositories.DatePlanRepository {
	return &DatePlanAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		venues: newVenueAdapter(client),
	}
}

// Create stores a plan and its items in one transaction
func (a *DatePlanAdapter) Create(ctx context.Context, plan *entities.DatePlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.Status == "" {
		plan.Status = entities.DatePlanStatusDraft
	}

	record := goqu.Record{
		"id":         plan.ID,
		"scope_key":  plan.ScopeKey,
		"title":      plan.Title,
		"occasion":   plan.Occasion,
		"reason":     plan.Reason,
		"status":     plan.Status,
		"created_at": plan.CreatedAt,
		"updated_at": plan.UpdatedAt,
	}
	if plan.UserID != "" {
		record["user_id"] = plan.UserID
	}
	if plan.CoupleID != "" {
		record["couple_id"] = plan.CoupleID
	}
	if plan.PlannedDate != nil {
		record["planned_date"] = plan.PlannedDate.Format(entities.DayLayout)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query, args, err := a.db.Insert("date_plans").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create date plan", err)
	}

	if len(plan.Items) > 0 {
		rows := make([]interface{}, 0, len(plan.Items))
		for i := range plan.Items {
			plan.Items[i].DatePlanID = plan.ID
			rows = append(rows, goqu.Record{
				"date_plan_id": plan.ID,
				"venue_id":     plan.Items[i].VenueID,
				"slot":         plan.Items[i].Slot,
				"order_index":  plan.Items[i].OrderIndex,
			})
		}

		query, args, err = a.db.Insert("date_plan_items").Rows(rows...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to create date plan items", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit date plan", err)
	}

	return nil
}

// GetByID retrieves a plan with its items and venues
func (a *DatePlanAdapter) GetByID(ctx context.Context, id string) (*entities.DatePlan, error) {
	query, args, err := a.db.Select(datePlanColumns...).
		From("date_plans").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	plan := &entities.DatePlan{}
	err = a.client.DBX().GetContext(ctx, plan, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("date plan with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get date plan", err)
	}

	if err := a.attachItems(ctx, []*entities.DatePlan{plan}); err != nil {
		return nil, err
	}

	return plan, nil
}

// ListByScope retrieves the plans of a scope, newest first
func (a *DatePlanAdapter) ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.DatePlan, error) {
	query, args, err := a.db.Select(datePlanColumns...).
		From("date_plans").
		Where(goqu.Ex{"scope_key": scope.Key()}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	plans := []*entities.DatePlan{}
	if err := a.client.DBX().SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list date plans", err)
	}

	if err := a.attachItems(ctx, plans); err != nil {
		return nil, err
	}

	return plans, nil
}

// UpdateStatus moves a plan to a new status, optionally with a rating
func (a *DatePlanAdapter) UpdateStatus(ctx context.Context, id string, status entities.DatePlanStatus, rating *int) error {
	record := goqu.Record{
		"status":     status,
		"updated_at": time.Now(),
	}
	if rating != nil {
		record["rating"] = *rating
	}

	query, args, err := a.db.Update("date_plans").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update date plan", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("date plan with id %s not found", id))
	}

	return nil
}

func (a *DatePlanAdapter) attachItems(ctx context.Context, plans []*entities.DatePlan) error {
	if len(plans) == 0 {
		return nil
	}

	planIDs := make([]string, 0, len(plans))
	for _, p := range plans {
		planIDs = append(planIDs, p.ID)
	}

	query, args, err := a.db.Select("date_plan_id", "venue_id", "slot", "order_index").
		From("date_plan_items").
		Where(goqu.C("date_plan_id").In(planIDs)).
		Order(goqu.I("date_plan_id").Asc(), goqu.I("order_index").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	items := []entities.DatePlanItem{}
	if err := a.client.DBX().SelectContext(ctx, &items, query, args...); err != nil {
		return apperrors.NewInternalError("failed to list date plan items", err)
	}

	venueIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.VenueID] {
			seen[item.VenueID] = true
			venueIDs = append(venueIDs, item.VenueID)
		}
	}

	venues, err := a.venues.listByIDs(ctx, venueIDs)
	if err != nil {
		return err
	}

	byPlan := make(map[string][]entities.DatePlanItem, len(plans))
	for _, item := range items {
		item.Venue = venues[item.VenueID]
		byPlan[item.DatePlanID] = append(byPlan[item.DatePlanID], item)
	}
	for _, p := range plans {
		p.Items = byPlan[p.ID]
	}

	return nil
}
