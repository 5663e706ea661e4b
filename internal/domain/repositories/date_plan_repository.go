package repositories

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// DatePlanRepository defines date plan persistence.
type DatePlanRepository interface {
	Create(ctx context.Context, plan *entities.DatePlan) error
	GetByID(ctx context.Context, id string) (*entities.DatePlan, error)
	ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.DatePlan, error)
	UpdateStatus(ctx context.Context, id string, status entities.DatePlanStatus, rating *int) error
}
