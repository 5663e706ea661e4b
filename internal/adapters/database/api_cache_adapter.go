package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// ApiCacheAdapter implements the ApiCacheRepository interface
type ApiCacheAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewApiCacheAdapter creates a new API cache adapter
func NewApiCacheAdapter(client *postgres.Client) repositories.ApiCacheRepository {
	return &ApiCacheAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Get retrieves a cached response
func (a *ApiCacheAdapter) Get(ctx context.Context, apiName, cacheKey string) (*entities.CacheEntry, error) {
	query, args, err := a.db.Select("api_name", "cache_key", "response", "created_at", "expires_at").
		From("api_cache").
		Where(goqu.Ex{"api_name": apiName, "cache_key": cacheKey}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	entry := &entities.CacheEntry{}
	err = a.client.DBX().GetContext(ctx, entry, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no cache entry %s/%s", apiName, cacheKey))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get cache entry", err)
	}

	return entry, nil
}

// Put stores a response, replacing any previous entry for the key
func (a *ApiCacheAdapter) Put(ctx context.Context, entry *entities.CacheEntry) error {
	record := goqu.Record{
		"api_name":   entry.APIName,
		"cache_key":  entry.CacheKey,
		"response":   string(entry.Response),
		"created_at": entry.CreatedAt,
		"expires_at": entry.ExpiresAt,
	}

	query, args, err := a.db.Insert("api_cache").
		Rows(record).
		OnConflict(goqu.DoUpdate("api_name, cache_key", goqu.Record{
			"response":   goqu.L("EXCLUDED.response"),
			"created_at": goqu.L("EXCLUDED.created_at"),
			"expires_at": goqu.L("EXCLUDED.expires_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to store cache entry", err)
	}

	return nil
}

// Delete removes a cached response
func (a *ApiCacheAdapter) Delete(ctx context.Context, apiName, cacheKey string) error {
	query, args, err := a.db.Delete("api_cache").
		Where(goqu.Ex{"api_name": apiName, "cache_key": cacheKey}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete cache entry", err)
	}

	return nil
}
