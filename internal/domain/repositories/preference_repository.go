package repositories

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// PreferenceRepository defines preference signal persistence.
type PreferenceRepository interface {
	// Upsert adds signal.Weight to the stored (scope, kind, value) row,
	// creating it when absent, and returns the stored row.
	Upsert(ctx context.Context, signal *entities.PreferenceSignal) (*entities.PreferenceSignal, error)
	// ListByScope returns the signals of the scope by descending weight.
	ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceSignal, error)
	// Reset appends the audit record and deletes the matching signals in one
	// transaction. It returns the number of deleted signals.
	Reset(ctx context.Context, audit *entities.PreferenceResetAudit) (int64, error)
	ListResetAudits(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceResetAudit, error)
}
