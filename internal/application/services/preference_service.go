package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// PreferenceService accumulates like/dislike signals per user or couple
type PreferenceService struct {
	repo repositories.PreferenceRepository
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(repo repositories.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// Record adds weight to the (scope, kind, value) signal, creating it when absent
func (s *PreferenceService) Record(ctx context.Context, scope entities.Scope, kind entities.PreferenceKind, value string, weight float64) (*entities.PreferenceSignal, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if _, err := entities.ParsePreferenceKind(string(kind)); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.NewValidationError("preference value is required")
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, apperrors.NewValidationError("preference weight must be a non-negative number")
	}

	signal, err := s.repo.Upsert(ctx, &entities.PreferenceSignal{
		ScopeKey: scope.Key(),
		UserID:   scope.UserID,
		CoupleID: scope.CoupleID,
		Kind:     kind,
		Value:    value,
		Weight:   weight,
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("scope", scope.Key()).
		Str("kind", string(kind)).
		Float64("weight", signal.Weight).
		Msg("Preference recorded")

	return signal, nil
}

// List returns the signals of scope, strongest first
func (s *PreferenceService) List(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceSignal, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.repo.ListByScope(ctx, scope)
}

// Values returns the values of one kind of signal for scope
func (s *PreferenceService) Values(ctx context.Context, scope entities.Scope, kind entities.PreferenceKind) ([]string, error) {
	signals, err := s.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	values := []string{}
	for _, sig := range signals {
		if sig.Kind == kind && sig.Weight > 0 {
			values = append(values, sig.Value)
		}
	}
	return values, nil
}

// Reset deletes the scope's signals, or only those of kind in category mode.
// kind is ignored in full mode.
// The audit record is written in the same transaction, before the delete.
func (s *PreferenceService) Reset(ctx context.Context, scope entities.Scope, mode entities.ResetMode, kind entities.PreferenceKind) (int64, error) {
	if err := scope.Validate(); err != nil {
		return 0, apperrors.NewValidationError(err.Error())
	}
	if _, err := entities.ParseResetMode(string(mode)); err != nil {
		return 0, apperrors.NewValidationError(err.Error())
	}

	audit := &entities.PreferenceResetAudit{
		ScopeKey: scope.Key(),
		UserID:   scope.UserID,
		CoupleID: scope.CoupleID,
		Mode:     mode,
	}

	switch mode {
	case entities.ResetModeCategory:
		if _, err := entities.ParsePreferenceKind(string(kind)); err != nil {
			return 0, apperrors.NewValidationError(fmt.Sprintf("category reset needs a valid kind: %v", err))
		}
		audit.NarrowedKind = kind
	case entities.ResetModeFull:
		// a full reset clears every kind; a stray kind is not recorded
		kind = ""
	}

	deleted, err := s.repo.Reset(ctx, audit)
	if err != nil {
		return 0, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("scope", scope.Key()).
		Str("mode", string(mode)).
		Str("kind", string(kind)).
		Int64("deleted", deleted).
		Msg("Preferences reset")

	return deleted, nil
}

// ResetHistory returns the audit trail of scope
func (s *PreferenceService) ResetHistory(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceResetAudit, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.repo.ListResetAudits(ctx, scope)
}
