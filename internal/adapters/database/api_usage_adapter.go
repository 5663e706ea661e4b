package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// ApiUsageAdapter implements the ApiUsageRepository interface
type ApiUsageAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	now    func() time.Time
}

// NewApiUsageAdapter creates a new API usage adapter
func NewApiUsageAdapter(client *postgres.Client) repositories.ApiUsageRepository {
	return &ApiUsageAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		now:    time.Now,
	}
}

func (a *ApiUsageAdapter) selectUsage() *goqu.SelectDataset {
	return a.db.Select(
		"api_name",
		goqu.L("to_char(day, 'YYYY-MM-DD')").As("day"),
		"call_count", "daily_limit", "monthly_count", "monthly_limit", "last_call_at",
	).From("api_usage")
}

// Get retrieves the usage record of apiName on day
func (a *ApiUsageAdapter) Get(ctx context.Context, apiName, day string) (*entities.ApiUsageRecord, error) {
	query, args, err := a.selectUsage().
		Where(goqu.Ex{"api_name": apiName, "day": day}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record := &entities.ApiUsageRecord{}
	err = a.client.DBX().GetContext(ctx, record, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no usage for %s on %s", apiName, day))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get api usage", err)
	}

	return record, nil
}

// Ensure creates the day's record when absent. The monthly count is carried
// over from the latest earlier day of the same API.
func (a *ApiUsageAdapter) Ensure(ctx context.Context, record *entities.ApiUsageRecord) error {
	query := `
		INSERT INTO api_usage (api_name, day, call_count, daily_limit, monthly_count, monthly_limit)
		VALUES (
			$1, $2, 0, $3,
			COALESCE((
				SELECT monthly_count FROM api_usage
				WHERE api_name = $1 AND day < $2
				ORDER BY day DESC
				LIMIT 1
			), 0),
			$4
		)
		ON CONFLICT (api_name, day) DO NOTHING
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		record.APIName,
		record.Day,
		record.DailyLimit,
		record.MonthlyLimit,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to create api usage", err)
	}

	return nil
}

// Increment adds one call to the day's counters in a single statement
func (a *ApiUsageAdapter) Increment(ctx context.Context, apiName, day string) error {
	query := `
		UPDATE api_usage
		SET call_count = call_count + 1,
			monthly_count = monthly_count + 1,
			last_call_at = $3
		WHERE api_name = $1 AND day = $2
	`

	result, err := a.client.DB().ExecContext(ctx, query, apiName, day, a.now())
	if err != nil {
		return apperrors.NewInternalError("failed to increment api usage", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("no usage for %s on %s", apiName, day))
	}

	return nil
}

// ListByDay retrieves every API's usage on day
func (a *ApiUsageAdapter) ListByDay(ctx context.Context, day string) ([]*entities.ApiUsageRecord, error) {
	query, args, err := a.selectUsage().
		Where(goqu.Ex{"day": day}).
		Order(goqu.I("api_name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	records := []*entities.ApiUsageRecord{}
	if err := a.client.DBX().SelectContext(ctx, &records, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list api usage", err)
	}

	return records, nil
}
