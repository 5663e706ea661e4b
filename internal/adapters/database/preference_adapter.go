package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

var preferenceColumns = []interface{}{
	"id", "scope_key",
	goqu.L("COALESCE(user_id, '')").As("user_id"),
	goqu.L("COALESCE(couple_id, '')").As("couple_id"),
	"kind", "value", "weight", "created_at", "updated_at",
}

// PreferenceAdapter implements the PreferenceRepository interface
type PreferenceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPreferenceAdapter creates a new preference adapter
func NewPreferenceAdapter(client *postgres.Client) repositories.PreferenceRepository {
	return &PreferenceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert accumulates the signal weight on the (scope, kind, value) row
func (a *PreferenceAdapter) Upsert(ctx context.Context, signal *entities.PreferenceSignal) (*entities.PreferenceSignal, error) {
	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}
	now := time.Now()

	query := `
		INSERT INTO user_preferences (id, scope_key, user_id, couple_id, kind, value, weight, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $8)
		ON CONFLICT (scope_key, kind, value)
		DO UPDATE SET
			weight = user_preferences.weight + EXCLUDED.weight,
			updated_at = EXCLUDED.updated_at
		RETURNING id, scope_key, COALESCE(user_id, '') AS user_id, COALESCE(couple_id, '') AS couple_id,
			kind, value, weight, created_at, updated_at
	`

	stored := &entities.PreferenceSignal{}
	err := a.client.DBX().GetContext(ctx, stored, query,
		signal.ID,
		signal.ScopeKey,
		signal.UserID,
		signal.CoupleID,
		signal.Kind,
		signal.Value,
		signal.Weight,
		now,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to record preference", err)
	}

	return stored, nil
}

// ListByScope retrieves the signals of a scope, strongest first
func (a *PreferenceAdapter) ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceSignal, error) {
	query, args, err := a.db.Select(preferenceColumns...).
		From("user_preferences").
		Where(goqu.Ex{"scope_key": scope.Key()}).
		Order(goqu.I("weight").Desc(), goqu.I("kind").Asc(), goqu.I("value").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	signals := []*entities.PreferenceSignal{}
	if err := a.client.DBX().SelectContext(ctx, &signals, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list preferences", err)
	}

	return signals, nil
}

// Reset writes the audit record and deletes the selected signals atomically
func (a *PreferenceAdapter) Reset(ctx context.Context, audit *entities.PreferenceResetAudit) (int64, error) {
	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	auditRecord := goqu.Record{
		"id":         audit.ID,
		"scope_key":  audit.ScopeKey,
		"mode":       audit.Mode,
		"created_at": audit.CreatedAt,
	}
	if audit.UserID != "" {
		auditRecord["user_id"] = audit.UserID
	}
	if audit.CoupleID != "" {
		auditRecord["couple_id"] = audit.CoupleID
	}
	if audit.NarrowedKind != "" {
		auditRecord["narrowed_kind"] = audit.NarrowedKind
	}

	insertSQL, insertArgs, err := a.db.Insert("preference_reset_audits").Rows(auditRecord).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return 0, apperrors.NewInternalError("failed to write reset audit", err)
	}

	where := goqu.Ex{"scope_key": audit.ScopeKey}
	if audit.Mode == entities.ResetModeCategory {
		where["kind"] = audit.NarrowedKind
	}

	deleteSQL, deleteArgs, err := a.db.Delete("user_preferences").Where(where).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build delete query", err)
	}
	result, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to delete preferences", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewInternalError("failed to commit preference reset", err)
	}

	return deleted, nil
}

// ListResetAudits retrieves the reset history of a scope, newest first
func (a *PreferenceAdapter) ListResetAudits(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceResetAudit, error) {
	query, args, err := a.db.Select(
		"id", "scope_key",
		goqu.L("COALESCE(user_id, '')").As("user_id"),
		goqu.L("COALESCE(couple_id, '')").As("couple_id"),
		"mode",
		goqu.L("COALESCE(narrowed_kind, '')").As("narrowed_kind"),
		"created_at",
	).
		From("preference_reset_audits").
		Where(goqu.Ex{"scope_key": scope.Key()}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	audits := []*entities.PreferenceResetAudit{}
	if err := a.client.DBX().SelectContext(ctx, &audits, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list reset audits", err)
	}

	return audits, nil
}
