package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

func TestApiUsageAdapter_GetNotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewApiUsageAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "api_usage"`).
		WillReturnRows(sqlmock.NewRows([]string{"api_name", "day"}))

	_, err := adapter.Get(context.Background(), "openweathermap", "2026-03-07")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiUsageAdapter_Get(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewApiUsageAdapter(client)

	rows := sqlmock.NewRows([]string{"api_name", "day", "call_count", "daily_limit", "monthly_count", "monthly_limit", "last_call_at"}).
		AddRow("openweathermap", "2026-03-07", 3, 50, 40, 1000, nil)
	mock.ExpectQuery(`SELECT .* FROM "api_usage"`).WillReturnRows(rows)

	record, err := adapter.Get(context.Background(), "openweathermap", "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, 3, record.CallCount)
	assert.Equal(t, 40, record.MonthlyCount)
	assert.Nil(t, record.LastCallAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiUsageAdapter_EnsureAndIncrement(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewApiUsageAdapter(client)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO api_usage .* ON CONFLICT \(api_name, day\) DO NOTHING`).
		WithArgs("openweathermap", "2026-03-07", 50, 1000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE api_usage\s+SET call_count = call_count \+ 1`).
		WithArgs("openweathermap", "2026-03-07", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE api_usage`).
		WithArgs("ticketmaster", "2026-03-07", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.Ensure(ctx, &entities.ApiUsageRecord{
		APIName: "openweathermap", Day: "2026-03-07", DailyLimit: 50, MonthlyLimit: 1000,
	}))
	require.NoError(t, adapter.Increment(ctx, "openweathermap", "2026-03-07"))

	err := adapter.Increment(ctx, "ticketmaster", "2026-03-07")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiCacheAdapter_PutUpserts(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewApiCacheAdapter(client)

	mock.ExpectExec(`INSERT INTO "api_cache" .* ON CONFLICT \(api_name, cache_key\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	err := adapter.Put(context.Background(), &entities.CacheEntry{
		APIName:   "openweathermap",
		CacheKey:  "current",
		Response:  []byte(`{"temp":3}`),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceAdapter_CategoryReset(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewPreferenceAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "preference_reset_audits"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "user_preferences" WHERE .*"kind" = 'liked_tag'`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	deleted, err := adapter.Reset(context.Background(), &entities.PreferenceResetAudit{
		ScopeKey:     "user:u1",
		UserID:       "u1",
		Mode:         entities.ResetModeCategory,
		NarrowedKind: entities.PreferenceLikedTag,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceAdapter_ResetRollsBackOnDeleteFailure(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewPreferenceAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "preference_reset_audits"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "user_preferences"`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := adapter.Reset(context.Background(), &entities.PreferenceResetAudit{
		ScopeKey: "couple:c1",
		CoupleID: "c1",
		Mode:     entities.ResetModeFull,
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceAdapter_UpsertAccumulates(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewPreferenceAdapter(client)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "scope_key", "user_id", "couple_id", "kind", "value", "weight", "created_at", "updated_at"}).
		AddRow("p1", "user:u1", "u1", "", "liked_tag", "carbonara", 2.0, now, now)
	mock.ExpectQuery(`ON CONFLICT \(scope_key, kind, value\)\s+DO UPDATE SET\s+weight = user_preferences.weight \+ EXCLUDED.weight`).
		WillReturnRows(rows)

	stored, err := adapter.Upsert(context.Background(), &entities.PreferenceSignal{
		ScopeKey: "user:u1",
		UserID:   "u1",
		Kind:     entities.PreferenceLikedTag,
		Value:    "carbonara",
		Weight:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueAdapter_ListAttachesTags(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewVenueAdapter(client)

	now := time.Now()
	venueRows := sqlmock.NewRows([]string{"id", "name", "slug", "type", "address", "district", "city", "website", "latitude", "longitude", "status", "created_at", "updated_at"}).
		AddRow("v1", "Trattoria Roma", "trattoria-roma", "restaurant", "", "Ottensen", "Hamburg", "", 53.55, 9.93, "active", now, now).
		AddRow("v2", "Bar Centrale", "bar-centrale", "bar", "", "St. Pauli", "Hamburg", "", nil, nil, "active", now, now)
	mock.ExpectQuery(`SELECT .* FROM "venues" WHERE .* ORDER BY "seq" ASC`).WillReturnRows(venueRows)

	tagRows := sqlmock.NewRows([]string{"id", "venue_id", "category", "label", "is_specialty", "quality_score", "upvotes", "downvotes", "created_at"}).
		AddRow("t1", "v1", "food", "Carbonara", true, 5.0, 0, 0, now)
	mock.ExpectQuery(`SELECT .* FROM "tags" WHERE \("venue_id" IN \('v1', 'v2'\)\)`).WillReturnRows(tagRows)

	venues, err := adapter.List(context.Background(), repositories.VenueFilter{
		Statuses: []entities.VenueStatus{entities.VenueStatusActive},
	})
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, "v1", venues[0].ID)
	require.NotNil(t, venues[0].Location)
	assert.Equal(t, 53.55, venues[0].Location.Latitude)
	require.Len(t, venues[0].Tags, 1)
	assert.Equal(t, 15.0, venues[0].Tags[0].MatchScore())
	assert.Nil(t, venues[1].Location)
	assert.Empty(t, venues[1].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagAdapter_VoteNotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewTagAdapter(client)

	mock.ExpectQuery(`UPDATE tags`).
		WithArgs("missing", 1, 0, 1.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := adapter.Vote(context.Background(), "missing", true)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatePlanAdapter_CreateWritesItems(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewDatePlanAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "date_plans"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "date_plan_items"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	plan := &entities.DatePlan{
		ScopeKey: "couple:c1",
		CoupleID: "c1",
		Title:    "Samstagabend",
		Items: []entities.DatePlanItem{
			{VenueID: "v1", Slot: entities.PlanSlotFood, OrderIndex: 0},
			{VenueID: "v2", Slot: entities.PlanSlotDrinks, OrderIndex: 1},
		},
	}
	require.NoError(t, adapter.Create(context.Background(), plan))
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, entities.DatePlanStatusDraft, plan.Status)
	assert.Equal(t, plan.ID, plan.Items[1].DatePlanID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueAdapter_CreateDuplicateSlug(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewVenueAdapter(client)

	mock.ExpectExec(`INSERT INTO "venues"`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := adapter.Create(context.Background(), &entities.Venue{
		Name: "Trattoria Luna",
		Slug: "trattoria-luna",
		Type: entities.VenueTypeRestaurant,
		City: "Hamburg",
	})
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
